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
	"errors"
	"io"

	"jinr.ru/greenlab/go-scan/pkg/calibration"
	"jinr.ru/greenlab/go-scan/pkg/device/ifc"
	"jinr.ru/greenlab/go-scan/pkg/geometry"
	"jinr.ru/greenlab/go-scan/pkg/log"
	"jinr.ru/greenlab/go-scan/pkg/motor"
	"jinr.ru/greenlab/go-scan/pkg/regs"
	"jinr.ru/greenlab/go-scan/pkg/retry"
)

// Stream is a running scan. Lines are read with Engine.ReadLine until
// io.EOF and the scan is closed with Engine.EndScan.
type Stream struct {
	Setup *geometry.Setup

	reorder   *geometry.Reorderer
	read      int
	remaining int
	paperOut  bool
}

func newStream(setup *geometry.Setup) *Stream {
	return &Stream{
		Setup:     setup,
		reorder:   geometry.NewReorderer(setup),
		remaining: setup.TotalBytes(),
	}
}

// Lines is the number of output lines returned so far
func (s *Stream) Lines() int {
	return s.reorder.Produced()
}

// Remaining is the number of raw bytes the device still has to deliver
func (s *Stream) Remaining() int {
	return s.remaining
}

// Expected is the raw size of the whole scan. It shrinks when the
// document ends before the requested area.
func (s *Stream) Expected() int {
	return s.read*s.Setup.BytesPerLine + s.remaining
}

// PaperOut reports whether the document sensor saw the end of the page
func (s *Stream) PaperOut() bool {
	return s.paperOut
}

// BeginScan programs the device for req and starts the scan. The head
// is parked and the front end calibrated first when needed. A sheet-fed
// scanner needs a loaded document.
func (e *Engine) BeginScan(req geometry.Request) (*Stream, error) {
	if err := e.begin(OpBeginScan); err != nil {
		return nil, err
	}
	if e.model.SheetFed && !e.document {
		return nil, ErrNoDocument
	}
	e.cancelled.Store(false)
	if req.Depth == 0 {
		req.Depth = 8
	}
	s, err := e.beginScan(req)
	if err != nil {
		return nil, e.fail(OpBeginScan, err, !e.model.SheetFed)
	}
	e.stream = s
	e.setState(Scanning)
	return s, nil
}

func (e *Engine) beginScan(req geometry.Request) (*Stream, error) {
	in, err := e.input(req.DPI, req.Color)
	if err != nil {
		return nil, err
	}
	if e.model.SheetFed {
		req.DocumentSteps = e.docSteps
	}
	setup, err := e.plan(in, req)
	if err != nil {
		return nil, err
	}
	need := setup.ReadBufferSize + setup.ShrinkBufferSize + setup.OutBufferSize
	if need > e.opts.MaxBuffer {
		return nil, ErrOutOfMemory{Need: need, Limit: e.opts.MaxBuffer}
	}

	if !e.model.SheetFed {
		e.setState(Parking)
		if err := e.parkHead(); err != nil {
			return nil, err
		}
	}
	st, ok := e.calibs[calibrationKey(req.DPI, req.Color)]
	if !ok {
		if st, err = e.calibrate(req.DPI, req.Color); err != nil {
			return nil, err
		}
	}
	e.setState(Seeking)
	if err := e.programScan(in, setup, st); err != nil {
		return nil, err
	}
	if e.opts.Store != nil {
		if err := e.opts.Store.PutRegisters(e.model.Name, e.file.Snapshot()); err != nil {
			log.Warning("Unable to save registers: %s", err)
		}
	}
	log.Info("Scanning %s", setup)
	if err := e.start(); err != nil {
		return nil, err
	}
	return newStream(setup), nil
}

// programScan writes the slope tables, shading and the registers of a
// moving scan
func (e *Engine) programScan(in geometry.Input, setup *geometry.Setup, st *calibration.State) error {
	length := e.family.MaxProfileLength()
	scanProf, err := motor.Generate(motor.ParamsFromRow(in.MotorRow, length))
	if err != nil {
		return err
	}
	fast := motor.FastParams(e.mot)
	fast.Length = length
	fastProf, err := motor.Generate(fast)
	if err != nil {
		return err
	}
	tables := e.family.MotorTables()
	if err := e.family.WriteProfile(e.ch, 0, scanProf); err != nil {
		return err
	}
	if tables > 1 {
		if err := e.family.WriteProfile(e.ch, tables-1, fastProf); err != nil {
			return err
		}
	}

	if err := e.apply(setup.Deltas()...); err != nil {
		return err
	}
	if err := e.programFrontEnd(st); err != nil {
		return err
	}
	err = e.apply(
		regs.FieldValue{ID: regs.FieldStepNo, Value: uint32(scanProf.Steps)},
		regs.FieldValue{ID: regs.FieldFwdStep, Value: uint32(scanProf.Steps)},
		regs.FieldValue{ID: regs.FieldFastNo, Value: uint32(fastProf.Steps)},
		regs.FieldValue{ID: regs.FieldLamp, Value: 1},
		regs.FieldValue{ID: regs.FieldMotorEnable, Value: 1},
		regs.FieldValue{ID: regs.FieldReverse, Value: 0},
		regs.FieldValue{ID: regs.FieldShading, Value: boolValue(len(st.Shading) > 0)},
	)
	if err != nil {
		return err
	}
	if e.layout.Has(regs.FieldZ1Mod) {
		z1, z2, err := motor.Remainder(scanProf, uint32(setup.Exposure), uint32(setup.MoveSteps),
			uint32(scanProf.Steps), tables > 1)
		if err != nil {
			return err
		}
		err = e.apply(
			regs.FieldValue{ID: regs.FieldZ1Mod, Value: z1},
			regs.FieldValue{ID: regs.FieldZ2Mod, Value: z2},
		)
		if err != nil {
			return err
		}
	}
	for _, p := range in.SensorRow.Registers {
		if err := e.file.Set(regs.Addr(p.Addr), p.Value); err != nil {
			return err
		}
	}
	if len(st.Shading) > 0 {
		if err := e.family.WriteShading(e.ch, calibration.ShadingBytes(st.Shading)); err != nil {
			return err
		}
	}
	return e.commit()
}

// ReadLine returns the next output line as one slice of samples per
// channel, or io.EOF once the scan area or the document is exhausted
func (e *Engine) ReadLine(s *Stream) ([][]uint16, error) {
	if s == nil || s != e.stream {
		return nil, ErrWrongState{Op: OpReadLine, State: e.State()}
	}
	if err := e.checkCancel(); err != nil {
		log.Info("Scan cancelled after %d lines", s.Lines())
		if ferr := e.finishScan(); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}
	for {
		if s.reorder.Ready() {
			line, err := s.reorder.Pop()
			if err != nil {
				return nil, e.fail(OpReadLine, err, !e.model.SheetFed)
			}
			return line, nil
		}
		if s.reorder.Done() || s.remaining <= 0 {
			if err := e.drain(s); err != nil {
				return nil, e.fail(OpReadLine, err, !e.model.SheetFed)
			}
			return nil, io.EOF
		}
		if e.model.SheetFed && !s.paperOut {
			present, err := e.family.PaperPresent(e.ch)
			if err != nil {
				return nil, e.fail(OpReadLine, err, false)
			}
			if !present {
				e.paperOut(s)
				continue
			}
		}
		if err := e.readRaw(s); err != nil {
			return nil, e.fail(OpReadLine, err, !e.model.SheetFed)
		}
	}
}

func (e *Engine) readRaw(s *Stream) error {
	data, err := e.readData(OpReadLine, s.Setup.BytesPerLine)
	if err != nil {
		return err
	}
	s.read++
	s.remaining -= len(data)
	return s.reorder.Push(data)
}

// drain reads the raw lines left after the last output line
func (e *Engine) drain(s *Stream) error {
	for s.remaining > 0 {
		data, err := e.readData(OpReadLine, s.Setup.BytesPerLine)
		if err != nil {
			return err
		}
		s.read++
		s.remaining -= len(data)
	}
	return nil
}

// readData waits for the ASIC to buffer scan data and reads length bytes
func (e *Engine) readData(op string, length int) ([]byte, error) {
	n, err := e.sensor.Poll(func() (bool, error) {
		st, err := e.ch.ReadStatus()
		if err != nil {
			return false, err
		}
		return !st.Has(ifc.StatusBufferEmpty), nil
	})
	if errors.As(err, &retry.ErrExhausted{}) {
		return nil, ErrTimeout{Kind: SensorTimeout, Op: op, Polls: n, Timeout: e.sensor.Timeout()}
	}
	if err != nil {
		return nil, err
	}
	return e.ch.BulkReadData(length)
}

// paperOut limits the scan to the lines between the document sensor
// and the scan line
func (e *Engine) paperOut(s *Stream) {
	left := s.Setup.LineCount - s.read
	post := geometry.MMToDots(e.model.PostScanMM, s.Setup.YDPI)
	if post > left {
		post = left
	}
	s.paperOut = true
	s.remaining = post * s.Setup.BytesPerLine
	s.reorder.Truncate(s.read + post - s.Setup.Margin())
	log.Info("Document end after %d lines, %d lines left", s.read, post)
}

// EndScan stops the scan and parks the head or ejects the document
func (e *Engine) EndScan(s *Stream) error {
	if s == nil || s != e.stream {
		return ErrWrongState{Op: OpEndScan, State: e.State()}
	}
	return e.finishScan()
}

func (e *Engine) finishScan() error {
	e.stream = nil
	if err := e.stop(); err != nil {
		return e.fail(OpEndScan, err, !e.model.SheetFed)
	}
	if e.model.SheetFed {
		if err := e.ejectDocument(); err != nil {
			return e.fail(OpEndScan, err, false)
		}
	} else {
		e.setState(Parking)
		if err := e.parkHead(); err != nil {
			return e.fail(OpEndScan, err, false)
		}
	}
	e.setState(Idle)
	return nil
}
