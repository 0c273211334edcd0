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

package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-scan/pkg/capability"
	"jinr.ru/greenlab/go-scan/pkg/regs"
)

func resolver(t *testing.T) *capability.Resolver {
	r, err := capability.Load("")
	require.NoError(t, err)
	return r
}

func input(t *testing.T, r *capability.Resolver, model string, dpi int, color bool) Input {
	m, err := r.Model(model)
	require.NoError(t, err)
	sensor, err := r.SensorOf(model)
	require.NoError(t, err)
	motor, err := r.MotorOf(model)
	require.NoError(t, err)
	srow, err := r.SensorRow(model, m.Sensor, dpi, color)
	require.NoError(t, err)
	mrow, err := r.MotorRow(model, m.Motor, dpi, color)
	require.NoError(t, err)
	return Input{Model: m, Sensor: sensor, Motor: motor, SensorRow: srow, MotorRow: mrow}
}

func TestSelectCkSel(t *testing.T) {
	cases := []struct {
		optical, dpi, limit, want int
	}{
		{1200, 1200, 0, 1},
		{1200, 800, 0, 1},
		{1200, 600, 0, 2},
		{1200, 400, 0, 2},
		{1200, 300, 0, 4},
		{1200, 75, 0, 4},
		{1200, 150, 2, 2},
		{600, 75, 1, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SelectCkSel(c.optical, c.dpi, c.limit), "%d/%d limit %d", c.optical, c.dpi, c.limit)
	}
}

func TestFullWidthColorAtHalfOptical(t *testing.T) {
	in := input(t, resolver(t), "hp-scanjet-2400", 600, true)
	require.Equal(t, 1200, in.SensorRow.OpticalDPI)
	require.Equal(t, 2, in.SensorRow.CkSel)
	req := Request{DPI: 600, Color: true, Depth: 8, Pixels: 5100, Lines: 100}

	s, err := Plan(in, req)
	require.NoError(t, err)
	assert.Equal(t, "ccd", s.Strategy)
	assert.Equal(t, 2, s.CkSel)
	assert.Equal(t, 1200, s.DPISet)
	assert.Equal(t, 5100, s.Pixels)
	assert.Equal(t, (s.EndPixel-s.StartPixel)*s.DPISet/s.OpticalDPI, s.WordsPerLine)
	assert.Equal(t, 5100, s.WordsPerLine)

	in.SensorRow.CkSel = 1
	full, err := Plan(in, req)
	require.NoError(t, err)
	assert.Equal(t, 1, full.CkSel)
	assert.Equal(t, 2*(s.EndPixel-s.StartPixel), full.EndPixel-full.StartPixel)
	assert.Equal(t, 2*s.StartPixel, full.StartPixel)
	assert.Equal(t, s.WordsPerLine, full.WordsPerLine)

	// color line distance at 600dpi on a 1200dpi motor
	assert.Equal(t, [3]int{0, 4, 8}, s.Shifts)
	assert.Equal(t, 8, s.MaxShift)
	assert.Equal(t, 108, s.LineCount)
	assert.Equal(t, 5100*3, s.BytesPerLine)
	assert.Equal(t, 2*align(s.BytesPerLine, BufferAlign)+8*s.BytesPerLine, s.ReadBufferSize)
	assert.Equal(t, s.LineCount*s.BytesPerLine, s.TotalBytes())
}

func TestPlanIsDeterministic(t *testing.T) {
	r := resolver(t)
	for _, model := range r.Models() {
		for _, color := range []bool{false, true} {
			for _, dpi := range r.Resolutions(model, color) {
				in := input(t, r, model, dpi, color)
				req := Request{DPI: dpi, Color: color, Depth: 16, X: dpi / 10, Y: dpi / 5, Pixels: 4 * dpi, Lines: 2 * dpi}
				a, err := Plan(in, req)
				require.NoError(t, err, "%s %d", model, dpi)
				b, err := Plan(in, req)
				require.NoError(t, err)
				assert.Equal(t, a, b)
				assert.Equal(t, a.Deltas(), b.Deltas())
			}
		}
	}
}

func TestCISFlushesFeeder(t *testing.T) {
	in := input(t, resolver(t), "visioneer-strobe-xp100", 300, true)
	req := Request{DPI: 300, Color: true, Depth: 8, Pixels: 2400, Lines: 1000}

	s, err := Plan(in, req)
	require.NoError(t, err)
	assert.Equal(t, "cis", s.Strategy)
	assert.Zero(t, s.MaxShift)
	// 12mm of paper path at 600 steps per inch, scanned at 300dpi
	assert.Equal(t, 283*300/600, s.FlushLines)
	assert.Equal(t, 1000+s.FlushLines, s.LineCount)
	assert.True(t, s.LineSequential)
	assert.Equal(t, 2400*3, s.WordsPerLine)

	req.DocumentSteps = 100
	moved, err := Plan(in, req)
	require.NoError(t, err)
	assert.Equal(t, 183*300/600, moved.FlushLines)

	req.DocumentSteps = 1000
	moved, err = Plan(in, req)
	require.NoError(t, err)
	assert.Zero(t, moved.FlushLines)

	req.Calibration = true
	cal, err := Plan(in, req)
	require.NoError(t, err)
	assert.Zero(t, cal.FlushLines)
	assert.Zero(t, cal.MoveSteps)
	assert.Equal(t, 1000, cal.LineCount)
}

func TestLegacyShrink(t *testing.T) {
	r := resolver(t)
	in := input(t, r, "plustek-opticpro-st24", 300, true)
	s, err := Plan(in, Request{DPI: 300, Color: true, Depth: 8, Pixels: 1000, Lines: 50})
	require.NoError(t, err)
	assert.Equal(t, "legacy", s.Strategy)
	assert.Equal(t, 600, s.DPISet)
	assert.Equal(t, 2, s.Shrink)
	assert.Equal(t, 2000, s.RawPixels)
	assert.Equal(t, 1000, s.Pixels)
	assert.Equal(t, 2000*3, s.BytesPerLine)
	assert.Equal(t, 1000*3, s.OutBytesPerLine)
	assert.Zero(t, s.Stagger)

	in = input(t, r, "plustek-opticpro-st24", 600, false)
	s, err = Plan(in, Request{DPI: 600, Depth: 8, Pixels: 1000, Lines: 50})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Stagger)
	assert.Equal(t, 52, s.LineCount)
}

func TestInvalidGeometry(t *testing.T) {
	in := input(t, resolver(t), "hp-scanjet-2400", 600, true)
	cases := map[string]Request{
		"no pixels":      {DPI: 600, Color: true, Depth: 8, Pixels: 0, Lines: 10},
		"no lines":       {DPI: 600, Color: true, Depth: 8, Pixels: 10, Lines: 0},
		"bad depth":      {DPI: 600, Color: true, Depth: 12, Pixels: 10, Lines: 10},
		"too wide":       {DPI: 600, Color: true, Depth: 8, X: 100, Pixels: 5100, Lines: 10},
		"row mismatch":   {DPI: 300, Color: true, Depth: 8, Pixels: 10, Lines: 10},
		"negative start": {DPI: 600, Color: true, Depth: 8, X: -1, Pixels: 10, Lines: 10},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Plan(in, req)
			assert.ErrorAs(t, err, &ErrInvalidGeometry{})
		})
	}
}

func TestDeltas(t *testing.T) {
	in := input(t, resolver(t), "canon-lide-35", 150, false)
	s, err := Plan(in, Request{DPI: 150, Depth: 16, Pixels: 100, Lines: 10})
	require.NoError(t, err)

	got := map[regs.FieldID]uint32{}
	for _, fv := range s.Deltas() {
		got[fv.ID] = fv.Value
	}
	assert.Equal(t, uint32(s.LineCount), got[regs.FieldLineCount])
	assert.Equal(t, uint32(s.CkSel-1), got[regs.FieldCkSel])
	assert.Equal(t, uint32(1), got[regs.FieldDepth16])
	assert.Equal(t, uint32(0), got[regs.FieldColor])
	assert.Equal(t, uint32(s.MoveSteps), got[regs.FieldFeedSteps])
}
