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

package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-scan/pkg/capability"
	"jinr.ru/greenlab/go-scan/pkg/device"
	"jinr.ru/greenlab/go-scan/pkg/device/gl646"
	"jinr.ru/greenlab/go-scan/pkg/device/gl841"
	"jinr.ru/greenlab/go-scan/pkg/device/ifc"
	"jinr.ru/greenlab/go-scan/pkg/device/sim"
	"jinr.ru/greenlab/go-scan/pkg/geometry"
	"jinr.ru/greenlab/go-scan/pkg/motor"
	"jinr.ru/greenlab/go-scan/pkg/regs"
)

// fields every family has to map
var required = []regs.FieldID{
	regs.FieldStartPixel, regs.FieldEndPixel, regs.FieldDPISet, regs.FieldCkSel,
	regs.FieldWordsPerLine, regs.FieldLineCount, regs.FieldFeedSteps, regs.FieldExposure,
	regs.FieldStepNo, regs.FieldFwdStep, regs.FieldFastNo, regs.FieldStepType,
	regs.FieldColor, regs.FieldLineSequential, regs.FieldDepth16, regs.FieldLamp,
	regs.FieldMotorEnable, regs.FieldReverse, regs.FieldShading,
	regs.FieldOffsetRed, regs.FieldOffsetGreen, regs.FieldOffsetBlue,
	regs.FieldGainRed, regs.FieldGainGreen, regs.FieldGainBlue, regs.FieldStart,
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{gl646.Name, gl841.Name}, device.Families())

	f, err := device.Lookup("gl841")
	require.NoError(t, err)
	assert.Equal(t, "gl841", f.Name())

	_, err = device.Lookup("gl999")
	assert.ErrorIs(t, err, device.ErrUnknownFamily{Name: "gl999"})
}

func TestLayouts(t *testing.T) {
	for _, fam := range []ifc.Family{gl646.New(), gl841.New()} {
		t.Run(fam.Name(), func(t *testing.T) {
			f, err := regs.NewFile(fam.Registers())
			require.NoError(t, err)
			layout := fam.Layout()
			require.NoError(t, layout.Validate(f))
			for _, id := range required {
				assert.True(t, layout.Has(id), "%s", id)
			}
			paper, _ := fam.PaperSensor()
			assert.False(t, f.Has(paper), "the document sensor is an input")
		})
	}

	assert.False(t, gl646.New().Layout().Has(regs.FieldExposureRed))
	assert.False(t, gl646.New().Layout().Has(regs.FieldZ1Mod))
	assert.True(t, gl841.New().Layout().Has(regs.FieldExposureBlue))
	assert.True(t, gl841.New().Layout().Has(regs.FieldZ2Mod))
}

func TestLayoutIsACopy(t *testing.T) {
	fam := gl841.New()
	l := fam.Layout()
	delete(l, regs.FieldStart)
	assert.True(t, fam.Layout().Has(regs.FieldStart))
}

func TestStrategy(t *testing.T) {
	legacy := capability.Sensor{Type: capability.SensorCCD, Legacy: true}
	assert.IsType(t, geometry.LegacyStrategy{}, gl646.New().Strategy(legacy))
	assert.IsType(t, geometry.CCDStrategy{}, gl841.New().Strategy(legacy))
	assert.IsType(t, geometry.CISStrategy{}, gl841.New().Strategy(capability.Sensor{Type: capability.SensorCIS}))
}

func newSim(t *testing.T, fam ifc.Family) *sim.Sim {
	opts := sim.DefaultOptions(fam.Registers(), fam.Layout())
	opts.PaperAddr, opts.PaperMask = fam.PaperSensor()
	s, err := sim.New(opts)
	require.NoError(t, err)
	return s
}

func TestWriteProfile(t *testing.T) {
	fam := gl841.New()
	s := newSim(t, fam)
	p, err := motor.Generate(motor.Params{Steps: 4, StartDelay: 4000, EndDelay: 1000, Exponent: 1})
	require.NoError(t, err)

	require.NoError(t, fam.WriteProfile(s, 1, p))
	require.Len(t, s.DataWrites, 1)
	assert.Len(t, s.DataWrites[0], 2*gl841.ProfileWords)
	assert.Equal(t, []byte{0xa0, 0x0f}, s.DataWrites[0][:2])
	// tail repeats the cruise delay
	assert.Equal(t, []byte{0xd6, 0x06}, s.DataWrites[0][2*gl841.ProfileWords-2:])
	assert.Equal(t, byte(0x42), s.Register(0x2a))
	assert.Equal(t, byte(0x00), s.Register(0x2b))

	assert.ErrorIs(t, gl646.New().WriteProfile(s, 1, p), device.ErrNoMotorTable{Family: gl646.Name, Table: 1})

	long := &motor.Profile{Table: make([]uint16, 256), Steps: 256}
	var perr motor.ErrInvalidMotorProfile
	assert.ErrorAs(t, gl646.New().WriteProfile(s, 0, long), &perr)
}

func TestWriteShading(t *testing.T) {
	fam := gl646.New()
	s := newSim(t, fam)
	require.NoError(t, fam.WriteShading(s, []byte{1, 2, 3, 4}))
	assert.Equal(t, [][]byte{{1, 2, 3, 4}}, s.DataWrites)
	assert.Equal(t, byte(0), s.Register(0x2a))
}

func TestStartStop(t *testing.T) {
	for _, fam := range []ifc.Family{gl646.New(), gl841.New()} {
		t.Run(fam.Name(), func(t *testing.T) {
			s := newSim(t, fam)
			f, err := regs.NewFile(fam.Registers())
			require.NoError(t, err)
			require.NoError(t, f.Apply(fam.Layout(), []regs.FieldValue{
				{ID: regs.FieldMotorEnable, Value: 1},
				{ID: regs.FieldFeedSteps, Value: 10},
			}))
			require.NoError(t, s.BulkWrite(f.Snapshot()))

			require.NoError(t, fam.StartScan(s, f))
			assert.Equal(t, 1, s.Starts)
			assert.True(t, s.Moving())
			v, err := f.Get(0x01)
			require.NoError(t, err)
			assert.Equal(t, byte(0x01), v&0x01)
			if fam.Name() == gl841.Name {
				assert.Equal(t, byte(1), s.Register(0x0f))
			} else {
				assert.Equal(t, byte(0), s.Register(0x0f))
			}

			require.NoError(t, fam.StopScan(s, f))
			assert.False(t, s.Moving())
		})
	}
}

func TestPaperPresent(t *testing.T) {
	fam := gl646.New()
	s := newSim(t, fam)
	ok, err := fam.PaperPresent(s)
	require.NoError(t, err)
	assert.False(t, ok)

	s.Insert()
	ok, err = fam.PaperPresent(s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, s.PaperReads)
}
