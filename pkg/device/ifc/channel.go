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
	"fmt"

	"jinr.ru/greenlab/go-scan/pkg/regs"
)

// Channel is the transport to one scanner ASIC. Implementations are
// blocking and are never called concurrently.
type Channel interface {
	ReadRegister(addr regs.Addr) (byte, error)
	WriteRegister(addr regs.Addr, val byte) error
	// BulkWrite sends the registers in the given order
	BulkWrite(set []regs.Reg) error
	// BulkReadData reads length bytes from the ASIC buffer
	BulkReadData(length int) ([]byte, error)
	// BulkWriteData writes to the ASIC RAM at the address programmed
	// beforehand through registers
	BulkWriteData(data []byte) error
	ReadStatus() (Status, error)
	Close() error
}

// Status is the ASIC status register
type Status byte

const (
	StatusMotorEnabled Status = 0x01
	StatusFrontendBusy Status = 0x02
	StatusLampOn       Status = 0x04
	StatusHome         Status = 0x08
	StatusScanFinished Status = 0x10
	StatusFeedFinished Status = 0x20
	StatusBufferEmpty  Status = 0x40
	StatusPower        Status = 0x80
)

func (s Status) Has(bit Status) bool {
	return s&bit != 0
}

func (s Status) Home() bool {
	return s.Has(StatusHome)
}

// MotorBusy reports a motor move still in progress
func (s Status) MotorBusy() bool {
	return s.Has(StatusMotorEnabled) && !s.Has(StatusFeedFinished)
}

func (s Status) String() string {
	names := []struct {
		bit  Status
		name string
	}{
		{StatusPower, "PWR"},
		{StatusBufferEmpty, "BUFEMPTY"},
		{StatusFeedFinished, "FEEDFSH"},
		{StatusScanFinished, "SCANFSH"},
		{StatusHome, "HOMESNR"},
		{StatusLampOn, "LAMPSTS"},
		{StatusFrontendBusy, "FEBUSY"},
		{StatusMotorEnabled, "MOTORENB"},
	}
	out := fmt.Sprintf("0x%02x", byte(s))
	for _, n := range names {
		if s.Has(n.bit) {
			out += " " + n.name
		}
	}
	return out
}

// ErrTransport wraps every failure of the underlying transport
type ErrTransport struct {
	Op  string
	Err error
}

func (e ErrTransport) Error() string {
	return fmt.Sprintf("transport: %s: %s", e.Op, e.Err)
}

func (e ErrTransport) Unwrap() error {
	return e.Err
}
