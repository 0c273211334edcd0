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

package calibration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearAFE responds linearly to offset, gain and exposure
type linearAFE struct {
	blackBase   float32
	offsetSlope float32
	spans       []float32
	nominal     float32
	calls       int
}

func (a *linearAFE) Sample(st *State, lamp bool) ([]int, error) {
	a.calls++
	out := make([]int, len(st.Channels))
	for i, ch := range st.Channels {
		v := a.blackBase + a.offsetSlope*float32(ch.Offset)
		if lamp {
			v += a.spans[i] * float32(ch.Exposure) / a.nominal * (1 + float32(ch.Gain)/32)
		}
		out[i] = clamp(int(v), 0, 255)
	}
	return out, nil
}

// frozenAFE ignores every setting
type frozenAFE struct {
	calls int
}

func (a *frozenAFE) Sample(st *State, lamp bool) ([]int, error) {
	a.calls++
	out := make([]int, len(st.Channels))
	for i := range out {
		if lamp {
			out[i] = 100
		}
	}
	return out, nil
}

type failingAFE struct{}

func (failingAFE) Sample(*State, bool) ([]int, error) {
	return nil, errors.New("usb gone")
}

func testOptions() Options {
	return Options{
		Black:            Band{Low: 8, High: 22},
		White:            Band{Low: 234, High: 252},
		OffsetIterations: 10,
		TotalIterations:  100,
		Policy:           Policy{Ratio: 0.5, Min: 1, Max: 32},
		GainSteps:        32,
		ExposureStep:     100,
		MinExposure:      1000,
		MaxExposure:      0xffff,
	}
}

func TestBandAndPolicy(t *testing.T) {
	b := Band{Low: 8, High: 22}
	assert.Equal(t, -8, b.Distance(0))
	assert.Equal(t, 0, b.Distance(8))
	assert.Equal(t, 0, b.Distance(22))
	assert.Equal(t, 10, b.Distance(32))

	p := Policy{Ratio: 0.5, Min: 1, Max: 16}
	assert.Equal(t, 0, p.Step(0))
	assert.Equal(t, 1, p.Step(1))
	assert.Equal(t, -5, p.Step(-10))
	assert.Equal(t, 16, p.Step(200))
}

func TestConvergesOnLinearChannel(t *testing.T) {
	afe := &linearAFE{blackBase: -100, offsetSlope: 1, spans: []float32{150, 160, 140}, nominal: 11000}
	st := NewState(3, 128, 0, 11000)

	require.NoError(t, NewController(testOptions()).Run(afe, st))

	assert.True(t, st.Converged)
	assert.False(t, st.Degraded)
	assert.LessOrEqual(t, st.OffsetIterations, 10)
	assert.LessOrEqual(t, st.Iterations(), 100)
	for i, ch := range st.Channels {
		assert.GreaterOrEqual(t, ch.Black, 8, "channel %d", i)
		assert.LessOrEqual(t, ch.Black, 22, "channel %d", i)
		assert.GreaterOrEqual(t, ch.White, 234, "channel %d", i)
		assert.LessOrEqual(t, ch.White, 252, "channel %d", i)
	}
}

func TestBoundedOnPathologicalChannel(t *testing.T) {
	afe := &frozenAFE{}
	st := NewState(3, 128, 10, 11000)

	require.NoError(t, NewController(testOptions()).Run(afe, st))

	assert.False(t, st.Converged)
	assert.True(t, st.Degraded)
	assert.Equal(t, 10, st.OffsetIterations)
	assert.Equal(t, 100, st.Iterations())
	assert.Equal(t, 2+100, afe.calls)
	for _, ch := range st.Channels {
		assert.Equal(t, 100, ch.White)
		assert.GreaterOrEqual(t, ch.Gain, 0)
		assert.LessOrEqual(t, ch.Gain, MaxGain)
	}
}

func TestCISExposureTakesOverFromGain(t *testing.T) {
	afe := &linearAFE{blackBase: -100, offsetSlope: 1, spans: []float32{60}, nominal: 11000}
	opts := testOptions()
	opts.CIS = true
	st := NewState(1, 128, 0, 11000)

	require.NoError(t, NewController(opts).Run(afe, st))
	assert.True(t, st.Converged)
	assert.Equal(t, MaxGain, st.Channels[0].Gain)
	assert.Greater(t, st.Channels[0].Exposure, 11000)

	ccd := NewState(1, 128, 0, 11000)
	require.NoError(t, NewController(testOptions()).Run(afe, ccd))
	assert.True(t, ccd.Degraded)
	assert.Equal(t, 11000, ccd.Channels[0].Exposure)
}

func TestSamplerErrorAborts(t *testing.T) {
	st := NewState(1, 128, 0, 11000)
	assert.Error(t, NewController(testOptions()).Run(failingAFE{}, st))
}

func TestGainCode(t *testing.T) {
	c := NewController(testOptions())
	assert.Equal(t, 0, c.GainCode(1))
	assert.Equal(t, 16, c.GainCode(1.5))
	assert.Equal(t, MaxGain, c.GainCode(10))
	assert.Equal(t, 0, c.GainCode(0.2))
	assert.InDelta(t, 2.0, c.GainFactor(32), 1e-6)
}

func TestShading(t *testing.T) {
	dark := [][]uint16{{1000, 2000}}
	white := [][]uint16{{1000 + ShadingTarget, 1500}}
	words, err := Shading(dark, white)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1000, ShadingUnity, 2000, 0xffff}, words)
	assert.Equal(t, []byte{0xe8, 0x03, 0x00, 0x40}, ShadingBytes(words[:2]))

	_, err = Shading(dark, [][]uint16{{1}, {2}})
	assert.Error(t, err)
}

func TestMeansAndAverage(t *testing.T) {
	assert.Equal(t, []int{20, 1}, Means([][]uint16{{10, 30}, {1, 1}}, 8))
	assert.Equal(t, []int{0x12}, Means([][]uint16{{0x1200, 0x1240}}, 16))

	avg, err := Average([][][]uint16{{{10, 20}}, {{30, 40}}})
	require.NoError(t, err)
	assert.Equal(t, [][]uint16{{20, 30}}, avg)

	_, err = Average(nil)
	assert.Error(t, err)
	assert.Equal(t, [][]uint16{{0x0100, 0xff00}}, Scale8([][]uint16{{1, 0xff}}))
}
