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

	"jinr.ru/greenlab/go-scan/pkg/device/ifc"
	"jinr.ru/greenlab/go-scan/pkg/geometry"
	"jinr.ru/greenlab/go-scan/pkg/log"
	"jinr.ru/greenlab/go-scan/pkg/motor"
	"jinr.ru/greenlab/go-scan/pkg/regs"
	"jinr.ru/greenlab/go-scan/pkg/retry"
)

// ParkHead moves the head back to the home sensor. Sheet-fed scanners
// have nothing to park.
func (e *Engine) ParkHead() error {
	if err := e.begin(OpPark); err != nil {
		return err
	}
	e.setState(Parking)
	if err := e.parkHead(); err != nil {
		return e.fail(OpPark, err, false)
	}
	e.setState(Idle)
	return nil
}

func (e *Engine) parkHead() error {
	if e.model.SheetFed {
		return nil
	}
	st, err := e.ch.ReadStatus()
	if err != nil {
		return err
	}
	if st.Home() {
		log.Debug("Head already at home")
		return nil
	}
	travel := geometry.MMToDots(e.model.YOffsetMM+e.model.HeightMM, e.mot.BaseDPI)
	if err := e.fastMove(travel, true); err != nil {
		return err
	}
	n, err := e.park.Poll(func() (bool, error) {
		st, err := e.ch.ReadStatus()
		if err != nil {
			return false, err
		}
		return st.Home(), nil
	})
	if err != nil {
		if errors.As(err, &retry.ErrExhausted{}) {
			return ErrDeviceBusy{Op: OpPark, Polls: n}
		}
		return err
	}
	log.Debug("Head parked after %d polls", n)
	return e.stop()
}

// fastMove programs the fast table and starts a move of steps without
// scanning
func (e *Engine) fastMove(steps int, reverse bool) error {
	prof, err := motor.Generate(motor.Params{
		Steps:      e.mot.FastSteps,
		StartDelay: e.mot.FastStartDelay,
		EndDelay:   e.mot.FastEndDelay,
		Exponent:   e.mot.FastExponent,
		Length:     e.family.MaxProfileLength(),
	})
	if err != nil {
		return err
	}
	for table := 0; table < e.family.MotorTables(); table++ {
		if err := e.family.WriteProfile(e.ch, table, prof); err != nil {
			return err
		}
	}
	err = e.apply(
		regs.FieldValue{ID: regs.FieldMotorEnable, Value: 1},
		regs.FieldValue{ID: regs.FieldReverse, Value: boolValue(reverse)},
		regs.FieldValue{ID: regs.FieldFeedSteps, Value: uint32(steps)},
		regs.FieldValue{ID: regs.FieldLineCount, Value: 0},
		regs.FieldValue{ID: regs.FieldLamp, Value: 0},
		regs.FieldValue{ID: regs.FieldStepNo, Value: uint32(prof.Steps)},
		regs.FieldValue{ID: regs.FieldFwdStep, Value: uint32(prof.Steps)},
		regs.FieldValue{ID: regs.FieldFastNo, Value: uint32(prof.Steps)},
	)
	if err != nil {
		return err
	}
	if err := e.commit(); err != nil {
		return err
	}
	log.Debug("Moving %d steps, reverse %t", steps, reverse)
	return e.start()
}

// waitMotor polls until the running move is over
func (e *Engine) waitMotor(op string) error {
	n, err := e.motor.Poll(func() (bool, error) {
		st, err := e.ch.ReadStatus()
		if err != nil {
			return false, err
		}
		return !st.MotorBusy(), nil
	})
	if errors.As(err, &retry.ErrExhausted{}) {
		return ErrTimeout{Kind: MotorTimeout, Op: op, Polls: n, Timeout: e.motor.Timeout()}
	}
	return err
}

// LoadDocument waits for a sheet on the document sensor and feeds it to
// the scan line
func (e *Engine) LoadDocument() error {
	if err := e.begin(OpLoad); err != nil {
		return err
	}
	if !e.model.SheetFed {
		log.Debug("%s has no document feeder", e.model.Name)
		return nil
	}
	if e.document {
		return nil
	}
	e.setState(AwaitingDocument)
	n, err := e.load.Poll(func() (bool, error) {
		return e.family.PaperPresent(e.ch)
	})
	if err != nil {
		if errors.As(err, &retry.ErrExhausted{}) {
			err = ErrTimeout{Kind: DocumentTimeout, Op: OpLoad, Polls: n, Timeout: e.load.Timeout()}
		}
		return e.fail(OpLoad, err, false)
	}
	log.Info("Document detected after %d polls", n)

	e.setState(Loading)
	steps := geometry.MMToDots(e.model.LoadMM, e.mot.BaseDPI)
	if err := e.fastMove(steps, false); err != nil {
		return e.fail(OpLoad, err, false)
	}
	if err := e.waitMotor(OpLoad); err != nil {
		return e.fail(OpLoad, err, false)
	}
	if err := e.stop(); err != nil {
		return e.fail(OpLoad, err, false)
	}
	e.document = true
	e.docSteps = steps
	e.setState(Idle)
	return nil
}

// EjectDocument feeds the sheet out of the paper path. On a timeout the
// document state is left as it was.
func (e *Engine) EjectDocument() error {
	if err := e.begin(OpEject); err != nil {
		return err
	}
	if err := e.ejectDocument(); err != nil {
		return e.fail(OpEject, err, false)
	}
	e.setState(Idle)
	return nil
}

func (e *Engine) ejectDocument() error {
	if !e.model.SheetFed {
		return nil
	}
	if !e.document {
		present, err := e.family.PaperPresent(e.ch)
		if err != nil {
			return err
		}
		if !present {
			return nil
		}
	}
	e.setState(Ejecting)
	if err := e.fastMove(geometry.MMToDots(e.model.EjectMM, e.mot.BaseDPI), false); err != nil {
		return err
	}
	var last ifc.Status
	n, err := e.eject.Poll(func() (bool, error) {
		st, err := e.ch.ReadStatus()
		last = st
		if err != nil {
			return false, err
		}
		return !st.MotorBusy(), nil
	})
	if err != nil {
		if errors.As(err, &retry.ErrExhausted{}) {
			return ErrTimeout{Kind: DocumentTimeout, Op: OpEject, Polls: n, Timeout: e.eject.Timeout()}
		}
		return err
	}
	if err := e.stop(); err != nil {
		return err
	}
	present, err := e.family.PaperPresent(e.ch)
	if err != nil {
		return err
	}
	if present {
		log.Warning("Document still present after eject, status %s", last)
		return ErrJammed
	}
	log.Info("Document ejected after %d polls", n)
	e.document = false
	e.docSteps = 0
	return nil
}

func boolValue(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
