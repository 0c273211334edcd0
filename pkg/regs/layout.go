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

package regs

import (
	"fmt"
	"math/bits"
)

// FieldID names a logical value spread over one or more registers.
// Each ASIC family maps the ids it supports to its own addresses.
type FieldID int

const (
	FieldStartPixel FieldID = iota
	FieldEndPixel
	FieldDPISet
	FieldCkSel
	FieldWordsPerLine
	FieldLineCount
	FieldFeedSteps
	FieldExposure
	FieldExposureRed
	FieldExposureGreen
	FieldExposureBlue
	FieldStepNo
	FieldFwdStep
	FieldFastNo
	FieldZ1Mod
	FieldZ2Mod
	FieldStepType
	FieldColor
	FieldLineSequential
	FieldDepth16
	FieldLamp
	FieldMotorEnable
	FieldReverse
	FieldShading
	FieldOffsetRed
	FieldOffsetGreen
	FieldOffsetBlue
	FieldGainRed
	FieldGainGreen
	FieldGainBlue
	FieldStart
	FieldAliasLimit
)

var fieldNames = map[FieldID]string{
	FieldStartPixel:     "STRPIXEL",
	FieldEndPixel:       "ENDPIXEL",
	FieldDPISet:         "DPISET",
	FieldCkSel:          "CKSEL",
	FieldWordsPerLine:   "MAXWD",
	FieldLineCount:      "LINCNT",
	FieldFeedSteps:      "FEEDL",
	FieldExposure:       "LPERIOD",
	FieldExposureRed:    "EXPR",
	FieldExposureGreen:  "EXPG",
	FieldExposureBlue:   "EXPB",
	FieldStepNo:         "STEPNO",
	FieldFwdStep:        "FWDSTEP",
	FieldFastNo:         "FASTNO",
	FieldZ1Mod:          "Z1MOD",
	FieldZ2Mod:          "Z2MOD",
	FieldStepType:       "STEPSEL",
	FieldColor:          "COLOR",
	FieldLineSequential: "LINESEQ",
	FieldDepth16:        "DEPTH16",
	FieldLamp:           "LAMPPWR",
	FieldMotorEnable:    "MTRPWR",
	FieldReverse:        "MTRREV",
	FieldShading:        "DVDSET",
	FieldOffsetRed:      "OFFSETR",
	FieldOffsetGreen:    "OFFSETG",
	FieldOffsetBlue:     "OFFSETB",
	FieldGainRed:        "GAINR",
	FieldGainGreen:      "GAING",
	FieldGainBlue:       "GAINB",
	FieldStart:          "SCAN",
}

func (id FieldID) String() string {
	if name, ok := fieldNames[id]; ok {
		return name
	}
	return fmt.Sprintf("FIELD(%d)", int(id))
}

// Offset, gain and exposure fields indexed by channel
var (
	OffsetFields   = [3]FieldID{FieldOffsetRed, FieldOffsetGreen, FieldOffsetBlue}
	GainFields     = [3]FieldID{FieldGainRed, FieldGainGreen, FieldGainBlue}
	ExposureFields = [3]FieldID{FieldExposureRed, FieldExposureGreen, FieldExposureBlue}
)

// Field locates a value in the register space. Multi-byte fields are
// big-endian over Width consecutive addresses starting at Addr. A non-zero
// Mask makes it a bit-field inside the single register Addr.
type Field struct {
	Name  string
	Addr  Addr
	Width int
	// Size is the number of significant bits, zero means Width*8
	Size int
	Mask byte
}

// Bits returns the value width of the field
func (fl Field) Bits() int {
	if fl.Mask != 0 {
		return bits.OnesCount8(fl.Mask)
	}
	if fl.Size > 0 {
		return fl.Size
	}
	return fl.Width * 8
}

// Max is the largest value the field holds
func (fl Field) Max() uint32 {
	b := fl.Bits()
	if b >= 32 {
		return ^uint32(0)
	}
	return 1<<uint(b) - 1
}

func (fl Field) shift() uint {
	return uint(bits.TrailingZeros8(fl.Mask))
}

func (fl Field) validate() error {
	switch {
	case fl.Mask != 0 && fl.Width > 1:
		return ErrBadField{Field: fl.Name, What: "bit-field wider than one register"}
	case fl.Mask != 0:
		if m := fl.Mask >> fl.shift(); m&(m+1) != 0 {
			return ErrBadField{Field: fl.Name, What: "mask is not contiguous"}
		}
		return nil
	case fl.Width < 1 || fl.Width > 4:
		return ErrBadField{Field: fl.Name, What: fmt.Sprintf("width %d", fl.Width)}
	case fl.Size > fl.Width*8:
		return ErrBadField{Field: fl.Name, What: fmt.Sprintf("size %d exceeds width %d", fl.Size, fl.Width)}
	}
	return nil
}

// Layout maps logical fields to a family's registers
type Layout map[FieldID]Field

func (l Layout) Field(id FieldID) (Field, error) {
	fl, ok := l[id]
	if !ok {
		return Field{}, ErrUnknownField{ID: id}
	}
	if fl.Name == "" {
		fl.Name = id.String()
	}
	return fl, nil
}

func (l Layout) Has(id FieldID) bool {
	_, ok := l[id]
	return ok
}

// Validate checks every field is well formed and declared in f
func (l Layout) Validate(f *File) error {
	for id := FieldID(0); id < FieldAliasLimit; id++ {
		fl, ok := l[id]
		if !ok {
			continue
		}
		if fl.Name == "" {
			fl.Name = id.String()
		}
		if err := fl.validate(); err != nil {
			return err
		}
		width := fl.Width
		if fl.Mask != 0 {
			width = 1
		}
		for i := 0; i < width; i++ {
			if !f.Has(fl.Addr + Addr(i)) {
				return fmt.Errorf("field %s: %w", fl.Name, ErrUnknownAddress{Addr: fl.Addr + Addr(i)})
			}
		}
	}
	return nil
}

// FieldValue is a pending field assignment
type FieldValue struct {
	ID    FieldID
	Value uint32
}

func (fv FieldValue) String() string {
	return fmt.Sprintf("%s=%d", fv.ID, fv.Value)
}
