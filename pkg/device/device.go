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

// Package device holds the ASIC family registry and the behaviour shared
// by the Genesys families.
package device

import (
	"fmt"
	"sort"
	"sync"

	"jinr.ru/greenlab/go-scan/pkg/capability"
	"jinr.ru/greenlab/go-scan/pkg/device/ifc"
	"jinr.ru/greenlab/go-scan/pkg/geometry"
	"jinr.ru/greenlab/go-scan/pkg/log"
	"jinr.ru/greenlab/go-scan/pkg/motor"
	"jinr.ru/greenlab/go-scan/pkg/regs"
)

var (
	mu       sync.RWMutex
	families = map[string]ifc.Family{}
)

// Register makes a family available by name. It panics when called twice
// for the same name.
func Register(f ifc.Family) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := families[f.Name()]; ok {
		panic("device: family registered twice: " + f.Name())
	}
	families[f.Name()] = f
}

// Lookup returns the registered family
func Lookup(name string) (ifc.Family, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := families[name]
	if !ok {
		return nil, ErrUnknownFamily{Name: name}
	}
	return f, nil
}

func Families() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type ErrUnknownFamily struct {
	Name string
}

func (e ErrUnknownFamily) Error() string {
	return fmt.Sprintf("unknown ASIC family %q", e.Name)
}

type ErrNoMotorTable struct {
	Family string
	Table  int
}

func (e ErrNoMotorTable) Error() string {
	return fmt.Sprintf("%s has no motor table %d", e.Family, e.Table)
}

// Base implements ifc.Family on top of a register declaration and a field
// layout. Families embed it and override what differs.
type Base struct {
	FamilyName    string
	Decl          []regs.Reg
	Fields        regs.Layout
	Tables        int
	ProfileLength int
	PaperAddr     regs.Addr
	PaperMask     byte
	// Strobe makes StartScan pulse the start register after setting the
	// scan bit
	Strobe bool
}

func (b *Base) Name() string {
	return b.FamilyName
}

func (b *Base) Registers() []regs.Reg {
	out := make([]regs.Reg, len(b.Decl))
	copy(out, b.Decl)
	return out
}

func (b *Base) Layout() regs.Layout {
	out := make(regs.Layout, len(b.Fields))
	for k, v := range b.Fields {
		out[k] = v
	}
	return out
}

func (b *Base) Strategy(sensor capability.Sensor) geometry.Strategy {
	return geometry.StrategyFor(sensor)
}

func (b *Base) MotorTables() int {
	return b.Tables
}

func (b *Base) MaxProfileLength() int {
	return b.ProfileLength
}

func (b *Base) PaperSensor() (regs.Addr, byte) {
	return b.PaperAddr, b.PaperMask
}

// WriteRAM programs the RAM address and streams data to it
func (b *Base) WriteRAM(ch ifc.Channel, addr uint16, data []byte) error {
	reg := RegMap[RegRAMAddr]
	if err := ch.WriteRegister(reg, byte(addr>>8)); err != nil {
		return err
	}
	if err := ch.WriteRegister(reg+1, byte(addr)); err != nil {
		return err
	}
	return ch.BulkWriteData(data)
}

// WriteProfile uploads p padded to the hardware table size
func (b *Base) WriteProfile(ch ifc.Channel, table int, p *motor.Profile) error {
	if table < 0 || table >= b.Tables {
		return ErrNoMotorTable{Family: b.FamilyName, Table: table}
	}
	if len(p.Table) == 0 || len(p.Table) > b.ProfileLength {
		return motor.ErrInvalidMotorProfile{
			What: fmt.Sprintf("%d entries for a %s table of %d", len(p.Table), b.FamilyName, b.ProfileLength),
		}
	}
	padded := &motor.Profile{Table: p.Padded(b.ProfileLength), Steps: p.Steps}
	addr := RAMMotorBase + uint16(table)*RAMMotorStride
	log.Debug("%s: motor table %d at 0x%04x, %d steps", b.FamilyName, table, addr, p.Steps)
	return b.WriteRAM(ch, addr, padded.Bytes())
}

func (b *Base) WriteShading(ch ifc.Channel, data []byte) error {
	log.Debug("%s: shading %d bytes", b.FamilyName, len(data))
	return b.WriteRAM(ch, RAMShading, data)
}

func (b *Base) StartScan(ch ifc.Channel, f *regs.File) error {
	if err := b.setStart(ch, f, 1); err != nil {
		return err
	}
	if b.Strobe {
		return ch.WriteRegister(RegMap[RegStrobe], 1)
	}
	return nil
}

func (b *Base) StopScan(ch ifc.Channel, f *regs.File) error {
	return b.setStart(ch, f, 0)
}

func (b *Base) setStart(ch ifc.Channel, f *regs.File, v uint32) error {
	fl, err := b.Fields.Field(regs.FieldStart)
	if err != nil {
		return err
	}
	if err := f.SetField(fl, v); err != nil {
		return err
	}
	val, err := f.Get(fl.Addr)
	if err != nil {
		return err
	}
	return ch.WriteRegister(fl.Addr, val)
}

func (b *Base) PaperPresent(ch ifc.Channel) (bool, error) {
	v, err := ch.ReadRegister(b.PaperAddr)
	if err != nil {
		return false, err
	}
	return v&b.PaperMask != 0, nil
}
