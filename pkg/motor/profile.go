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

// Package motor builds stepper acceleration tables for the ASIC motor
// engine. Table entries are step delays in ASIC clock ticks, so a
// faster motor has smaller values.
package motor

import (
	"encoding/binary"
	"fmt"

	"github.com/chewxy/math32"

	"jinr.ru/greenlab/go-scan/pkg/capability"
)

const (
	// MaxProfileLength is the size of a hardware slope table
	MaxProfileLength = 256
	MinDelay         = 250
	MaxDelay         = 0xffff
)

type Params struct {
	// Steps is the number of acceleration entries
	Steps      int
	StartDelay int
	EndDelay   int
	Exponent   float32
	// Length is the table size, entries past Steps hold EndDelay.
	// Zero means Steps.
	Length int
}

// ParamsFromRow takes the slope of a motor capability row
func ParamsFromRow(row capability.MotorRow, length int) Params {
	return Params{
		Steps:      row.Steps,
		StartDelay: row.StartDelay,
		EndDelay:   row.EndDelay,
		Exponent:   row.Exponent,
		Length:     length,
	}
}

// FastParams takes the feed/park slope of a motor
func FastParams(m capability.Motor) Params {
	return Params{
		Steps:      m.FastSteps,
		StartDelay: m.FastStartDelay,
		EndDelay:   m.FastEndDelay,
		Exponent:   m.FastExponent,
	}
}

func (p Params) validate() error {
	length := p.Length
	if length == 0 {
		length = p.Steps
	}
	switch {
	case p.Steps <= 0:
		return ErrInvalidMotorProfile{What: fmt.Sprintf("step count %d", p.Steps)}
	case length > MaxProfileLength:
		return ErrInvalidMotorProfile{What: fmt.Sprintf("table length %d exceeds %d", length, MaxProfileLength)}
	case p.Steps > length:
		return ErrInvalidMotorProfile{What: fmt.Sprintf("step count %d exceeds table length %d", p.Steps, length)}
	case p.Exponent <= 0:
		return ErrInvalidMotorProfile{What: fmt.Sprintf("curve exponent %g", p.Exponent)}
	case p.StartDelay < p.EndDelay:
		return ErrInvalidMotorProfile{What: fmt.Sprintf("start delay %d is faster than end delay %d", p.StartDelay, p.EndDelay)}
	case p.EndDelay <= 0:
		return ErrInvalidMotorProfile{What: fmt.Sprintf("end delay %d", p.EndDelay)}
	}
	return nil
}

type Profile struct {
	Table []uint16
	// Steps is the number of acceleration entries at the head of Table
	Steps int
}

// Generate computes
//
//	delay(i) = end + (start - end) * ((steps - i) / steps) ^ exponent
//
// for i in [0, steps), clipped to the hardware delay range and padded
// with a constant tail up to Length.
func Generate(p Params) (*Profile, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	length := p.Length
	if length == 0 {
		length = p.Steps
	}
	n := float32(p.Steps)
	span := float32(p.StartDelay - p.EndDelay)
	table := make([]uint16, length)
	for i := 0; i < p.Steps; i++ {
		v := float32(p.EndDelay) + span*math32.Pow((n-float32(i))/n, p.Exponent)
		table[i] = clip(int(math32.Round(v)))
	}
	for i := p.Steps; i < length; i++ {
		table[i] = clip(p.EndDelay)
	}
	return &Profile{Table: table, Steps: p.Steps}, nil
}

func clip(v int) uint16 {
	if v < MinDelay {
		return MinDelay
	}
	if v > MaxDelay {
		return MaxDelay
	}
	return uint16(v)
}

// Last is the cruising delay reached at the end of acceleration
func (p *Profile) Last() uint16 {
	return p.Table[p.Steps-1]
}

// Sum is the acceleration time in ticks
func (p *Profile) Sum() uint32 {
	var sum uint32
	for _, v := range p.Table[:p.Steps] {
		sum += uint32(v)
	}
	return sum
}

// Sequence is the delay of every step of a move with cruise constant
// steps: acceleration, cruise, then the table replayed backwards.
func (p *Profile) Sequence(cruise int) []uint16 {
	accel := p.Table[:p.Steps]
	out := make([]uint16, 0, 2*len(accel)+cruise)
	out = append(out, accel...)
	for i := 0; i < cruise; i++ {
		out = append(out, p.Last())
	}
	for i := len(accel) - 1; i >= 0; i-- {
		out = append(out, accel[i])
	}
	return out
}

// Bytes encodes the table as little-endian words for upload
func (p *Profile) Bytes() []byte {
	out := make([]byte, 2*len(p.Table))
	for i, v := range p.Table {
		binary.LittleEndian.PutUint16(out[2*i:], v)
	}
	return out
}

// Padded returns the table extended to length with its last entry
func (p *Profile) Padded(length int) []uint16 {
	out := make([]uint16, length)
	n := copy(out, p.Table)
	for i := n; i < length; i++ {
		out[i] = p.Table[len(p.Table)-1]
	}
	return out
}
