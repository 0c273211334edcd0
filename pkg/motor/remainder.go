/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package motor

import "fmt"

// RemainderBits is the width of the Z1MOD and Z2MOD registers
const RemainderBits = 20

// Remainder computes the sub-line timing fix-ups that keep the first
// exposure aligned after acceleration.
//
// fwdSteps is the buffer acceleration step count (FWDSTEP) and moveSteps
// the move distance to the scan area.
//
//	z1 = (sum + fwdSteps * last) mod exposure
//	z2 = (sum + moveSteps * last) mod exposure, or (sum + last) when fast fed
func Remainder(p *Profile, exposure, moveSteps, fwdSteps uint32, fastFed bool) (z1, z2 uint32, err error) {
	if exposure == 0 {
		return 0, 0, ErrInvalidMotorProfile{What: "zero exposure time"}
	}
	if exposure >= 1<<RemainderBits {
		return 0, 0, ErrInvalidMotorProfile{What: fmt.Sprintf("exposure %d exceeds %d bits", exposure, RemainderBits)}
	}
	sum := uint64(p.Sum())
	last := uint64(p.Last())
	z1 = uint32((sum + uint64(fwdSteps)*last) % uint64(exposure))
	if fastFed {
		z2 = uint32((sum + last) % uint64(exposure))
	} else {
		z2 = uint32((sum + uint64(moveSteps)*last) % uint64(exposure))
	}
	return z1, z2, nil
}
