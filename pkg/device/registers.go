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

package device

import "jinr.ru/greenlab/go-scan/pkg/regs"

// RegAlias names the registers every Genesys family keeps at the same place
type RegAlias int

const (
	RegScanControl RegAlias = iota
	RegMotorControl
	RegStrobe
	RegRAMAddr
	RegStatus
	RegGPIO
	RegAliasLimit
)

var RegMap = map[RegAlias]regs.Addr{
	RegScanControl:  0x01,
	RegMotorControl: 0x02,
	RegStrobe:       0x0f,
	RegRAMAddr:      0x2a,
	RegStatus:       0x41,
	RegGPIO:         0x6d,
}

const (
	RegScanControlBitScan    byte = 0x01
	RegScanControlBitShading byte = 0x20
	RegScanControlBitCIS     byte = 0x80

	RegMotorControlBitReverse byte = 0x04
	RegMotorControlBitFastFed byte = 0x08
	RegMotorControlBitPower   byte = 0x10
)

// RAM addresses of the uploaded tables
const (
	RAMShading     uint16 = 0x0000
	RAMMotorBase   uint16 = 0x4000
	RAMMotorStride uint16 = 0x0200
)
