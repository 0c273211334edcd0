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

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-scan/pkg/capability"
	"jinr.ru/greenlab/go-scan/pkg/device"
	"jinr.ru/greenlab/go-scan/pkg/device/sim"
	"jinr.ru/greenlab/go-scan/pkg/geometry"
	"jinr.ru/greenlab/go-scan/pkg/motor"
	"jinr.ru/greenlab/go-scan/pkg/regs"
	"jinr.ru/greenlab/go-scan/pkg/retry"
	"jinr.ru/greenlab/go-scan/pkg/state"
)

const (
	lide35 = "canon-lide-35"
	hp2400 = "hp-scanjet-2400"
	xp100  = "visioneer-strobe-xp100"
)

var noSleep = retry.SleeperFunc(func(time.Duration) {})

func newEngine(t *testing.T, model string, tweak func(o *sim.Options), opts ...func(o *Options)) (*Engine, *sim.Sim) {
	t.Helper()
	resolver, err := capability.Load("")
	require.NoError(t, err)
	m, err := resolver.Model(model)
	require.NoError(t, err)
	fam, err := device.Lookup(m.Family)
	require.NoError(t, err)

	so := sim.DefaultOptions(fam.Registers(), fam.Layout())
	so.PaperAddr, so.PaperMask = fam.PaperSensor()
	if tweak != nil {
		tweak(&so)
	}
	s, err := sim.New(so)
	require.NoError(t, err)

	o := Options{Sleeper: noSleep}
	for _, f := range opts {
		f(&o)
	}
	e := New(s, resolver, o)
	require.NoError(t, e.Init(model))
	return e, s
}

func readAllLines(t *testing.T, e *Engine, s *Stream) [][][]uint16 {
	t.Helper()
	var out [][][]uint16
	for {
		line, err := e.ReadLine(s)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, line)
	}
}

func TestNotInitialized(t *testing.T) {
	resolver, err := capability.Load("")
	require.NoError(t, err)
	s, err := sim.New(sim.Options{})
	require.NoError(t, err)
	e := New(s, resolver, Options{Sleeper: noSleep})

	assert.ErrorIs(t, e.ParkHead(), ErrNotInitialized)
	_, err = e.Registers()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Equal(t, Idle.String(), e.Status().State)
	assert.Empty(t, e.Status().Model)
}

func TestInitUnknownModel(t *testing.T) {
	resolver, err := capability.Load("")
	require.NoError(t, err)
	s, err := sim.New(sim.Options{})
	require.NoError(t, err)
	e := New(s, resolver, Options{Sleeper: noSleep})

	err = e.Init("no-such-scanner")
	assert.Equal(t, NoCapabilityMatch, Classify(err))
}

func TestLoadTimesOutAfterExactPolls(t *testing.T) {
	e, s := newEngine(t, xp100, nil)

	err := e.LoadDocument()
	require.Error(t, err)
	assert.Equal(t, DocumentTimeout, Classify(err))
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.True(t, Retryable(err))

	var timeout ErrTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 300, timeout.Polls)
	assert.Equal(t, 60*time.Second, timeout.Timeout)
	assert.Equal(t, 300, s.PaperReads)
	assert.Zero(t, s.Starts)
	assert.Equal(t, Idle, e.State())
	assert.False(t, e.Status().Document)
}

func TestLoadDocument(t *testing.T) {
	e, s := newEngine(t, xp100, func(o *sim.Options) { o.PaperAfterReads = 5 })

	require.NoError(t, e.LoadDocument())
	assert.Equal(t, 6, s.PaperReads)
	assert.True(t, e.Status().Document)
	assert.Equal(t, DocumentState{Loaded: true, PositionSteps: 425}, e.Document())
	assert.True(t, s.SheetPresent())
	assert.Equal(t, 1, s.Starts)
	assert.False(t, s.Moving())

	// a loaded document is not loaded twice
	require.NoError(t, e.LoadDocument())
	assert.Equal(t, 1, s.Starts)
}

func TestLoadOnFlatbedIsNoop(t *testing.T) {
	e, s := newEngine(t, lide35, nil)
	require.NoError(t, e.LoadDocument())
	require.NoError(t, e.EjectDocument())
	assert.Zero(t, s.PaperReads)
	assert.Zero(t, s.Starts)
}

func TestBeginScanWithoutDocument(t *testing.T) {
	e, s := newEngine(t, xp100, nil)
	_, err := e.BeginScan(geometry.Request{DPI: 300, Pixels: 100, Lines: 10})
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.Equal(t, NoDocument, Classify(err))
	assert.Zero(t, s.Starts)
	assert.Equal(t, Idle, e.State())
}

func TestPaperOutShortensScan(t *testing.T) {
	e, s := newEngine(t, xp100, func(o *sim.Options) { o.PaperOutAfterLines = 210 })
	s.Insert()
	require.NoError(t, e.LoadDocument())

	stream, err := e.BeginScan(geometry.Request{DPI: 300, Depth: 8, Pixels: 200, Lines: 300})
	require.NoError(t, err)
	bpl := stream.Setup.BytesPerLine
	require.Equal(t, 200, bpl)
	require.Equal(t, 300, stream.Setup.LineCount)
	assert.Equal(t, 300*bpl, stream.Expected())
	assert.Equal(t, Scanning, e.State())

	lines := readAllLines(t, e, stream)
	// 5mm between the paper sensor and the scan line is 59 lines at 300 dpi
	assert.True(t, stream.PaperOut())
	assert.Len(t, lines, 210+59)
	assert.Equal(t, (210+59)*bpl, stream.Expected())
	assert.Zero(t, stream.Remaining())
	assert.Equal(t, 210+59, s.LinesRead)
	assert.Equal(t, 269, e.Status().LinesRead)

	_, err = e.ReadLine(stream)
	assert.Equal(t, io.EOF, err)

	require.NoError(t, e.EndScan(stream))
	assert.False(t, e.Status().Document)
	assert.False(t, e.Status().Scanning)
	assert.Equal(t, Idle, e.State())
}

func TestReadTimesOutAfterExactPolls(t *testing.T) {
	e, s := newEngine(t, xp100, nil)
	s.Insert()
	require.NoError(t, e.LoadDocument())

	stream, err := e.BeginScan(geometry.Request{DPI: 300, Depth: 8, Pixels: 100, Lines: 20})
	require.NoError(t, err)
	s.StallAfterLines = 5
	reads := s.StatusReads

	for err == nil {
		_, err = e.ReadLine(stream)
	}
	assert.Equal(t, SensorTimeout, Classify(err))
	assert.True(t, Retryable(err))

	var timeout ErrTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, OpReadLine, timeout.Op)
	assert.Equal(t, 50, timeout.Polls)
	assert.Equal(t, 5*time.Second, timeout.Timeout)
	// one ready check per line read, then the exhausted wait
	assert.Equal(t, 5, s.LinesRead)
	assert.Equal(t, 5+50, s.StatusReads-reads)
	assert.Equal(t, Idle, e.State())
	assert.False(t, e.Status().Scanning)
}

func TestParkSkippedAtHome(t *testing.T) {
	e, s := newEngine(t, lide35, nil)
	reads := s.StatusReads

	require.NoError(t, e.ParkHead())
	assert.Equal(t, reads+1, s.StatusReads)
	assert.Zero(t, s.Starts)
}

func TestParkReturnsHome(t *testing.T) {
	e, s := newEngine(t, lide35, func(o *sim.Options) { o.HeadSteps = 1000 })

	require.NoError(t, e.ParkHead())
	assert.Zero(t, s.Head())
	assert.Equal(t, 1, s.Starts)
	assert.False(t, s.Moving())
	assert.Equal(t, Idle, e.State())
}

func TestParkDeviceBusy(t *testing.T) {
	e, s := newEngine(t, lide35, func(o *sim.Options) {
		o.HeadSteps = 1000
		o.ParkPolls = sim.Never
	})

	err := e.ParkHead()
	require.Error(t, err)
	assert.Equal(t, DeviceBusy, Classify(err))
	var busy ErrDeviceBusy
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, 400, busy.Polls)
	// one status read to check home, then the park policy
	assert.Equal(t, 401, s.StatusReads)
	assert.False(t, s.Moving())
	assert.Equal(t, Idle, e.State())
}

func TestEjectDocument(t *testing.T) {
	e, s := newEngine(t, xp100, nil)
	s.Insert()
	require.NoError(t, e.LoadDocument())

	require.NoError(t, e.EjectDocument())
	assert.False(t, s.SheetPresent())
	assert.False(t, e.Status().Document)
}

func TestEjectJammed(t *testing.T) {
	e, s := newEngine(t, xp100, func(o *sim.Options) { o.Jam = true })
	s.Insert()
	require.NoError(t, e.LoadDocument())

	err := e.EjectDocument()
	assert.ErrorIs(t, err, ErrJammed)
	assert.Equal(t, Jammed, Classify(err))
	assert.True(t, e.Status().Document)
	assert.Equal(t, Idle, e.State())
}

func TestEjectTimeout(t *testing.T) {
	e, s := newEngine(t, xp100, func(o *sim.Options) { o.MotorPolls = sim.Never })
	s.Insert()

	err := e.EjectDocument()
	require.Error(t, err)
	assert.Equal(t, DocumentTimeout, Classify(err))
	assert.False(t, errors.Is(err, ErrNoDocument))
	var timeout ErrTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, OpEject, timeout.Op)
	assert.Equal(t, 150, timeout.Polls)
	assert.False(t, e.Status().Document)
	assert.True(t, s.SheetPresent())
}

func TestCalibrateConverges(t *testing.T) {
	e, s := newEngine(t, hp2400, nil)

	st, err := e.Calibrate(600, true)
	require.NoError(t, err)
	assert.True(t, st.Converged)
	assert.False(t, st.Degraded)
	require.Len(t, st.Channels, 3)
	for c, ch := range st.Channels {
		assert.GreaterOrEqual(t, ch.Black, 8, "channel %d", c)
		assert.LessOrEqual(t, ch.Black, 22, "channel %d", c)
		assert.GreaterOrEqual(t, ch.White, 234, "channel %d", c)
		assert.LessOrEqual(t, ch.White, 252, "channel %d", c)
	}
	// green has the widest span and needs the least gain
	assert.Less(t, st.Channels[1].Gain, st.Channels[0].Gain)
	assert.Less(t, st.Channels[0].Gain, st.Channels[2].Gain)
	require.NotEmpty(t, st.Shading)
	assert.Zero(t, len(st.Shading)%6)

	assert.Equal(t, []string{"600/color"}, e.Status().Calibrated)
	assert.False(t, s.Scanning())
	assert.Equal(t, Idle, e.State())
}

func TestCalibrateDegradesOnDeadChannel(t *testing.T) {
	e, _ := newEngine(t, lide35, func(o *sim.Options) { o.Spans[0] = 0 })

	st, err := e.Calibrate(75, false)
	require.NoError(t, err)
	assert.True(t, st.Degraded)
	assert.False(t, st.Converged)
	assert.LessOrEqual(t, st.Iterations(), 100)
	assert.Equal(t, Idle, e.State())
}

func TestCalibrateParksFirst(t *testing.T) {
	e, s := newEngine(t, lide35, func(o *sim.Options) { o.HeadSteps = 500 })

	_, err := e.Calibrate(300, false)
	require.NoError(t, err)
	assert.Zero(t, s.Head())
	assert.Equal(t, Idle, e.State())
}

func TestCalibrationCache(t *testing.T) {
	store, err := state.NewStore(context.Background(), filepath.Join(t.TempDir(), "state.db"), time.Hour)
	require.NoError(t, err)
	defer store.Close()
	withStore := func(o *Options) { o.Store = store }

	e, _ := newEngine(t, lide35, nil, withStore)
	first, err := e.Calibrate(150, false)
	require.NoError(t, err)

	e2, s2 := newEngine(t, lide35, nil, withStore)
	second, err := e2.Calibrate(150, false)
	require.NoError(t, err)
	assert.Zero(t, s2.Starts)
	assert.Equal(t, first.Channels, second.Channels)
	assert.Equal(t, first.Shading, second.Shading)
}

func TestFlatbedScan(t *testing.T) {
	e, s := newEngine(t, lide35, nil)

	stream, err := e.BeginScan(geometry.Request{DPI: 300, Color: true, Pixels: 100, Lines: 20})
	require.NoError(t, err)
	assert.True(t, e.Status().Scanning)
	assert.Equal(t, uint32(1), s.Field(regs.FieldLamp))
	assert.Equal(t, uint32(1), s.Field(regs.FieldShading))

	lines := readAllLines(t, e, stream)
	require.Len(t, lines, 20)
	for _, line := range lines {
		require.Len(t, line, 3)
		for c := range line {
			require.Len(t, line[c], 100)
			assert.GreaterOrEqual(t, int(line[c][0]), 234)
			assert.LessOrEqual(t, int(line[c][0]), 252)
		}
	}
	assert.Equal(t, stream.Setup.TotalBytes(), stream.Expected())
	assert.Zero(t, stream.Remaining())

	require.NoError(t, e.EndScan(stream))
	assert.Zero(t, s.Head())
	assert.Equal(t, Idle, e.State())
	assert.NotEmpty(t, s.DataWrites)
}

func TestScanRemainders(t *testing.T) {
	for _, y := range []int{0, 100} {
		e, s := newEngine(t, lide35, nil)
		stream, err := e.BeginScan(geometry.Request{DPI: 300, Color: true, Y: y, Pixels: 100, Lines: 20})
		require.NoError(t, err)

		mrow, err := e.resolver.MotorRow(lide35, e.mot.ID, 300, true)
		require.NoError(t, err)
		prof, err := motor.Generate(motor.ParamsFromRow(mrow, e.family.MaxProfileLength()))
		require.NoError(t, err)
		sum, last := prof.Sum(), uint32(prof.Last())
		exposure := uint32(stream.Setup.Exposure)
		fwd := s.Field(regs.FieldFwdStep)
		assert.Equal(t, uint32(prof.Steps), fwd)

		// both depend on the acceleration alone, never on the distance to the scan area
		assert.Equal(t, (sum+fwd*last)%exposure, s.Field(regs.FieldZ1Mod), "y=%d", y)
		assert.Equal(t, (sum+last)%exposure, s.Field(regs.FieldZ2Mod), "y=%d", y)
		assert.Equal(t, uint32(3512), s.Field(regs.FieldZ1Mod), "y=%d", y)
		assert.Equal(t, uint32(5317), s.Field(regs.FieldZ2Mod), "y=%d", y)

		readAllLines(t, e, stream)
		require.NoError(t, e.EndScan(stream))
	}
}

func TestFieldOverflowKind(t *testing.T) {
	steps := regs.ErrFieldOverflow{Field: regs.FieldStepNo.String(), Value: 300, Bits: 8}
	assert.Equal(t, InvalidMotorProfile, Classify(steps))
	assert.Equal(t, InvalidMotorProfile, Classify(fmt.Errorf("program scan: %w", steps)))
	z1 := regs.ErrFieldOverflow{Field: regs.FieldZ1Mod.String(), Value: 1 << 21, Bits: 20}
	assert.Equal(t, InvalidMotorProfile, Classify(z1))

	lines := regs.ErrFieldOverflow{Field: regs.FieldLineCount.String(), Value: 1 << 21, Bits: 20}
	assert.Equal(t, InvalidGeometry, Classify(lines))
	assert.True(t, Fatal(lines))
}

func TestOutOfMemory(t *testing.T) {
	e, s := newEngine(t, lide35, nil, func(o *Options) { o.MaxBuffer = 1024 })

	_, err := e.BeginScan(geometry.Request{DPI: 600, Color: true, Pixels: 5000, Lines: 100})
	require.Error(t, err)
	assert.Equal(t, OutOfMemory, Classify(err))
	assert.True(t, Fatal(err))
	assert.Zero(t, s.Starts)
	assert.Equal(t, Idle, e.State())
}

func TestInvalidGeometry(t *testing.T) {
	e, _ := newEngine(t, lide35, nil)
	_, err := e.BeginScan(geometry.Request{DPI: 300, Pixels: 0, Lines: 10})
	assert.Equal(t, InvalidGeometry, Classify(err))

	_, err = e.BeginScan(geometry.Request{DPI: 333, Pixels: 10, Lines: 10})
	assert.Equal(t, NoCapabilityMatch, Classify(err))
	assert.Equal(t, Idle, e.State())
}

func TestCancelScan(t *testing.T) {
	e, s := newEngine(t, lide35, nil)

	stream, err := e.BeginScan(geometry.Request{DPI: 150, Pixels: 50, Lines: 30})
	require.NoError(t, err)
	_, err = e.ReadLine(stream)
	require.NoError(t, err)

	e.Cancel()
	_, err = e.ReadLine(stream)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, Cancelled, Classify(err))
	assert.Zero(t, s.Head())
	assert.False(t, s.Scanning())
	assert.Equal(t, Idle, e.State())

	_, err = e.ReadLine(stream)
	var wrong ErrWrongState
	assert.ErrorAs(t, err, &wrong)
}

func TestTransportErrorDuringScan(t *testing.T) {
	e, s := newEngine(t, lide35, nil)
	stream, err := e.BeginScan(geometry.Request{DPI: 150, Pixels: 50, Lines: 30})
	require.NoError(t, err)

	s.Fail = func(op string) error {
		if op == "bulk read" {
			return errors.New("pipe error")
		}
		return nil
	}
	_, err = e.ReadLine(stream)
	require.Error(t, err)
	assert.Equal(t, TransportError, Classify(err))
	assert.True(t, Fatal(err))
	assert.Zero(t, s.Head())
	assert.Equal(t, Idle, e.State())
	assert.False(t, e.Status().Scanning)
}

func TestSearchStartPosition(t *testing.T) {
	e, s := newEngine(t, lide35, func(o *sim.Options) {
		o.Image = func(x, y, c int) float32 {
			if x < 8 || y < 12 {
				return 0
			}
			return 1
		}
	})

	ref, err := e.SearchStartPosition()
	require.NoError(t, err)
	assert.True(t, ref.Found)
	assert.Equal(t, 75, ref.DPI)
	assert.Equal(t, 8, ref.X)
	assert.Equal(t, 12, ref.Y)
	assert.InDelta(t, 2.709, ref.XMM, 0.001)
	assert.InDelta(t, 4.064, ref.YMM, 0.001)
	require.NotNil(t, e.Status().Reference)
	assert.Zero(t, s.Head())
	assert.Equal(t, Idle, e.State())
}

func TestSearchWithoutContrast(t *testing.T) {
	e, _ := newEngine(t, lide35, nil)
	ref, err := e.SearchStartPosition()
	require.NoError(t, err)
	assert.False(t, ref.Found)
	assert.Nil(t, e.Status().Reference)
}

func TestSearchOnSheetFed(t *testing.T) {
	e, s := newEngine(t, xp100, nil)
	ref, err := e.SearchStartPosition()
	require.NoError(t, err)
	assert.False(t, ref.Found)
	assert.Zero(t, s.Starts)
}

func TestWriteRegister(t *testing.T) {
	e, s := newEngine(t, lide35, nil)

	require.NoError(t, e.WriteRegister(0x50, 0x42))
	assert.Equal(t, byte(0x42), s.Register(0x50))
	v, err := e.ReadRegister(0x50)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), v)

	err = e.WriteRegister(0xfe, 1)
	assert.Equal(t, UnknownAddress, Classify(err))
	assert.Equal(t, Idle, e.State())
}
