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

// Package regs models the register space of a scanner ASIC.
//
// A File holds the values of a fixed, ordered set of declared addresses.
// Updating a File never touches the hardware, committing it is done by
// the device channel with a bulk write in declaration order.
package regs

import (
	"fmt"
	"strconv"
	"strings"
)

// Addr is a register address
type Addr uint16

func (a Addr) String() string {
	return fmt.Sprintf("0x%02x", uint16(a))
}

// ParseAddr accepts decimal or 0x prefixed hex addresses
func ParseAddr(s string) (Addr, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("parse register address %q: %w", s, err)
	}
	return Addr(v), nil
}

// Reg is a single register address/value pair
type Reg struct {
	Addr  Addr `json:"addr"`
	Value byte `json:"value"`
}

// Hex formats the address and value the way the API exchanges them
func (r Reg) Hex() (addr, value string) {
	return fmt.Sprintf("0x%04x", uint16(r.Addr)), fmt.Sprintf("0x%02x", r.Value)
}

func (r Reg) String() string {
	return fmt.Sprintf("%s=0x%02x", r.Addr, r.Value)
}

// Snapshot is an ordered copy of all register values of a File
type Snapshot []Reg

// Lookup ...
func (s Snapshot) Lookup(addr Addr) (byte, bool) {
	for _, r := range s {
		if r.Addr == addr {
			return r.Value, true
		}
	}
	return 0, false
}
