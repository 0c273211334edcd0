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

// Package gl841 drives the Genesys GL841 flatbed controller: two motor
// tables with sub-line remainders and a per-channel exposure for CIS LEDs.
package gl841

import (
	"jinr.ru/greenlab/go-scan/pkg/capability"
	"jinr.ru/greenlab/go-scan/pkg/device"
	"jinr.ru/greenlab/go-scan/pkg/device/ifc"
	"jinr.ru/greenlab/go-scan/pkg/geometry"
	"jinr.ru/greenlab/go-scan/pkg/motor"
)

const (
	Name         = "gl841"
	MotorTables  = 2
	PaperSensor  = 0x02
	ProfileWords = motor.MaxProfileLength
)

type Device struct {
	device.Base
}

var _ ifc.Family = &Device{}

func init() {
	device.Register(New())
}

func New() *Device {
	return &Device{
		Base: device.Base{
			FamilyName:    Name,
			Decl:          Registers,
			Fields:        Layout,
			Tables:        MotorTables,
			ProfileLength: ProfileWords,
			PaperAddr:     device.RegMap[device.RegGPIO],
			PaperMask:     PaperSensor,
			Strobe:        true,
		},
	}
}

// Strategy plans every CCD through the sensor clock divider, the GL841
// has no use for the fixed resolution path.
func (d *Device) Strategy(sensor capability.Sensor) geometry.Strategy {
	sensor.Legacy = false
	return geometry.StrategyFor(sensor)
}
