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

package ifc

import (
	"jinr.ru/greenlab/go-scan/pkg/capability"
	"jinr.ru/greenlab/go-scan/pkg/geometry"
	"jinr.ru/greenlab/go-scan/pkg/motor"
	"jinr.ru/greenlab/go-scan/pkg/regs"
)

// Family is one scanner ASIC generation. It knows the register set, where
// each logical field lives and how to upload tables and start the engine.
type Family interface {
	Name() string
	// Registers returns the declared register set with power-on values
	Registers() []regs.Reg
	Layout() regs.Layout
	Strategy(sensor capability.Sensor) geometry.Strategy

	// MotorTables is the number of slope tables, the first one drives the
	// scan move and the last one fast moves
	MotorTables() int
	MaxProfileLength() int
	// PaperSensor locates the document sensor bit
	PaperSensor() (regs.Addr, byte)

	WriteProfile(ch Channel, table int, p *motor.Profile) error
	WriteShading(ch Channel, data []byte) error
	StartScan(ch Channel, f *regs.File) error
	StopScan(ch Channel, f *regs.File) error
	PaperPresent(ch Channel) (bool, error)
}
