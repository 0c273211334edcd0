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
	"jinr.ru/greenlab/go-scan/pkg/calibration"
	"jinr.ru/greenlab/go-scan/pkg/capability"
	"jinr.ru/greenlab/go-scan/pkg/geometry"
	"jinr.ru/greenlab/go-scan/pkg/log"
	"jinr.ru/greenlab/go-scan/pkg/regs"
	"jinr.ru/greenlab/go-scan/pkg/state"
)

// Calibrate tunes the analog front end and captures the shading of the
// sensor for scans at dpi. A cached calibration younger than the
// configured expiration is reused. A flatbed head is parked first.
func (e *Engine) Calibrate(dpi int, color bool) (*calibration.State, error) {
	if err := e.begin(OpCalibrate); err != nil {
		return nil, err
	}
	e.cancelled.Store(false)
	if dpi == 0 {
		dpi = e.model.CalibrationDPI
	}
	if !e.model.SheetFed {
		e.setState(Parking)
		if err := e.parkHead(); err != nil {
			return nil, e.fail(OpCalibrate, err, false)
		}
	}
	st, err := e.calibrate(dpi, color)
	if err != nil {
		return nil, e.fail(OpCalibrate, err, true)
	}
	e.setState(Idle)
	return st.Clone(), nil
}

func (e *Engine) calibrate(dpi int, color bool) (*calibration.State, error) {
	key := calibrationKey(dpi, color)
	channels := 1
	if color {
		channels = 3
	}
	if e.opts.Store != nil {
		st, err := e.opts.Store.GetCalibration(e.model.Name, dpi, color, channels)
		switch {
		case err == nil:
			log.Info("Using cached calibration %s from %s", key, st.Created.Format("15:04:05"))
			e.calibs[key] = st
			return st, nil
		case !state.IsMiss(err):
			log.Warning("Calibration cache: %s", err)
		}
	}

	row, err := e.resolver.SensorRow(e.model.Name, e.sens.ID, dpi, color)
	if err != nil {
		return nil, err
	}
	st := calibration.NewState(channels, InitialOffset, 0, row.Exposure)
	opts := calibration.OptionsFromConfig(e.opts.Calibration)
	if e.sens.GainSteps > 0 {
		opts.GainSteps = e.sens.GainSteps
	}
	opts.CIS = e.sens.Type == capability.SensorCIS && e.layout.Has(regs.FieldExposureRed)
	ctrl := calibration.NewController(opts)
	src := &lineSampler{e: e, dpi: dpi, color: color}

	e.setState(CoarseCalibrating)
	if err := ctrl.Coarse(src, st); err != nil {
		return nil, err
	}
	e.setState(OffsetCalibrating)
	if err := ctrl.Offset(src, st); err != nil {
		return nil, err
	}
	e.setState(GainCalibrating)
	if err := ctrl.Gain(src, st); err != nil {
		return nil, err
	}
	e.setState(ShadeCalibrating)
	if err := src.shading(st, e.opts.Calibration.ShadingLines); err != nil {
		return nil, err
	}
	if err := e.programFrontEnd(st); err != nil {
		return nil, err
	}
	if err := e.commit(); err != nil {
		return nil, err
	}
	log.Info("Calibrated %s: %s", key, st)
	e.calibs[key] = st
	if e.opts.Store != nil {
		if err := e.opts.Store.PutCalibration(e.model.Name, dpi, color, st); err != nil {
			log.Warning("Unable to cache calibration %s: %s", key, err)
		}
	}
	return st, nil
}

// programFrontEnd writes offsets, gains and exposures of st. A gray
// calibration drives all three channels.
func (e *Engine) programFrontEnd(st *calibration.State) error {
	for c := 0; c < 3; c++ {
		ch := st.Channels[0]
		if c < len(st.Channels) {
			ch = st.Channels[c]
		}
		err := e.apply(
			regs.FieldValue{ID: regs.OffsetFields[c], Value: uint32(ch.Offset)},
			regs.FieldValue{ID: regs.GainFields[c], Value: uint32(ch.Gain)},
		)
		if err != nil {
			return err
		}
		if e.layout.Has(regs.ExposureFields[c]) && ch.Exposure > 0 {
			if err := e.apply(regs.FieldValue{ID: regs.ExposureFields[c], Value: uint32(ch.Exposure)}); err != nil {
				return err
			}
		}
	}
	return nil
}

// fullWidth is the scanner width in pixels at dpi
func (e *Engine) fullWidth(dpi int) int {
	return int(e.model.WidthMM * float64(dpi) / geometry.MMPerInch)
}

// lineSampler scans calibration lines at the home position
type lineSampler struct {
	e     *Engine
	dpi   int
	color bool
}

var _ calibration.Sampler = &lineSampler{}

func (s *lineSampler) Sample(st *calibration.State, lamp bool) ([]int, error) {
	lines, err := s.capture(st, lamp, 8, 1)
	if err != nil {
		return nil, err
	}
	return calibration.Means(lines[0], 8), nil
}

func (s *lineSampler) shading(st *calibration.State, n int) error {
	dark, err := s.capture(st, false, 16, n)
	if err != nil {
		return err
	}
	white, err := s.capture(st, true, 16, n)
	if err != nil {
		return err
	}
	avgDark, err := calibration.Average(dark)
	if err != nil {
		return err
	}
	avgWhite, err := calibration.Average(white)
	if err != nil {
		return err
	}
	words, err := calibration.Shading(avgDark, avgWhite)
	if err != nil {
		return err
	}
	st.Shading = words
	return nil
}

// capture programs st and reads n lines without moving the head
func (s *lineSampler) capture(st *calibration.State, lamp bool, depth, n int) ([][][]uint16, error) {
	e := s.e
	if err := e.checkCancel(); err != nil {
		return nil, err
	}
	in, err := e.input(s.dpi, s.color)
	if err != nil {
		return nil, err
	}
	setup, err := e.plan(in, geometry.Request{
		DPI:         s.dpi,
		Color:       s.color,
		Depth:       depth,
		Pixels:      e.fullWidth(s.dpi),
		Lines:       n,
		Calibration: true,
	})
	if err != nil {
		return nil, err
	}
	if err := e.apply(setup.Deltas()...); err != nil {
		return nil, err
	}
	if err := e.programFrontEnd(st); err != nil {
		return nil, err
	}
	err = e.apply(
		regs.FieldValue{ID: regs.FieldLamp, Value: boolValue(lamp)},
		regs.FieldValue{ID: regs.FieldMotorEnable, Value: 0},
		regs.FieldValue{ID: regs.FieldShading, Value: 0},
	)
	if err != nil {
		return nil, err
	}
	if err := e.commit(); err != nil {
		return nil, err
	}
	if err := e.start(); err != nil {
		return nil, err
	}
	lines, err := e.readAll(setup)
	if err != nil {
		return nil, err
	}
	if err := e.stop(); err != nil {
		return nil, err
	}
	return lines, nil
}

// readAll reads every raw line of setup and returns the output lines
func (e *Engine) readAll(setup *geometry.Setup) ([][][]uint16, error) {
	reorder := geometry.NewReorderer(setup)
	out := make([][][]uint16, 0, setup.Lines)
	for i := 0; i < setup.LineCount; i++ {
		data, err := e.readData(OpReadData, setup.BytesPerLine)
		if err != nil {
			return nil, err
		}
		if err := reorder.Push(data); err != nil {
			return nil, err
		}
		for reorder.Ready() {
			line, err := reorder.Pop()
			if err != nil {
				return nil, err
			}
			out = append(out, line)
		}
	}
	return out, nil
}

// input resolves the capability rows for dpi. Offsets are taken relative
// to the reference point when one was found.
func (e *Engine) input(dpi int, color bool) (geometry.Input, error) {
	srow, err := e.resolver.SensorRow(e.model.Name, e.sens.ID, dpi, color)
	if err != nil {
		return geometry.Input{}, err
	}
	mrow, err := e.resolver.MotorRow(e.model.Name, e.mot.ID, dpi, color)
	if err != nil {
		return geometry.Input{}, err
	}
	m := e.model
	if ref := e.reference; ref != nil && ref.Found {
		m.XOffsetMM += ref.XMM
		m.YOffsetMM += ref.YMM
	}
	return geometry.Input{Model: m, Sensor: e.sens, Motor: e.mot, SensorRow: srow, MotorRow: mrow}, nil
}

func (e *Engine) plan(in geometry.Input, req geometry.Request) (*geometry.Setup, error) {
	return e.family.Strategy(e.sens).Plan(in, req)
}
