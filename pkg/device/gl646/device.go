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

// Package gl646 drives the Genesys GL646: one slope table shared by scan
// and fast moves, a document sensor for sheet-fed models and the fixed
// resolution path of older CCDs.
package gl646

import (
	"jinr.ru/greenlab/go-scan/pkg/device"
	"jinr.ru/greenlab/go-scan/pkg/device/ifc"
)

const (
	Name         = "gl646"
	MotorTables  = 1
	PaperSensor  = 0x01
	ProfileWords = 255
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
		},
	}
}
