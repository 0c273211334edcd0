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

// Package engine runs the scan lifecycle of a Genesys based scanner:
// initialization, head parking, document feeding, reference search,
// analog front end calibration and line streaming.
//
// An Engine owns one device channel and is not safe for concurrent use,
// except Cancel and State which may be called at any time.
package engine

import (
	"fmt"
	"sort"
	"sync/atomic"

	"jinr.ru/greenlab/go-scan/pkg/calibration"
	"jinr.ru/greenlab/go-scan/pkg/capability"
	"jinr.ru/greenlab/go-scan/pkg/config"
	"jinr.ru/greenlab/go-scan/pkg/device"
	"jinr.ru/greenlab/go-scan/pkg/device/ifc"
	"jinr.ru/greenlab/go-scan/pkg/log"
	"jinr.ru/greenlab/go-scan/pkg/regs"
	"jinr.ru/greenlab/go-scan/pkg/retry"
	"jinr.ru/greenlab/go-scan/pkg/state"

	// families selectable by model
	_ "jinr.ru/greenlab/go-scan/pkg/device/gl646"
	_ "jinr.ru/greenlab/go-scan/pkg/device/gl841"
)

const (
	// DefaultMaxBuffer bounds the host buffers of one scan
	DefaultMaxBuffer = 64 << 20
	// InitialOffset is the front end offset code calibration starts from
	InitialOffset = 128
)

type Options struct {
	Poll        *config.PollConfig
	Calibration *config.CalibrationConfig
	Sleeper     retry.Sleeper
	// Store caches calibrations across sessions, nil disables it
	Store     *state.Store
	MaxBuffer int
}

// OptionsFromConfig takes the poll bounds and calibration targets of cfg
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{Poll: cfg.Poll, Calibration: cfg.Calibration}
}

type Engine struct {
	ch       ifc.Channel
	resolver *capability.Resolver
	opts     Options

	park   retry.Policy
	load   retry.Policy
	eject  retry.Policy
	motor  retry.Policy
	sensor retry.Policy

	family    ifc.Family
	layout    regs.Layout
	file      *regs.File
	committed regs.Snapshot
	saved     regs.Snapshot

	model  capability.Model
	sens   capability.Sensor
	mot    capability.Motor
	inited bool

	state     atomic.Int32
	cancelled atomic.Bool

	document  bool
	docSteps  int
	reference *ReferencePoint
	calibs    map[string]*calibration.State
	stream    *Stream
}

func New(ch ifc.Channel, resolver *capability.Resolver, opts Options) *Engine {
	defaults := config.NewDefaultConfig()
	if opts.Poll == nil {
		opts.Poll = defaults.Poll
	}
	if opts.Calibration == nil {
		opts.Calibration = defaults.Calibration
	}
	if opts.MaxBuffer == 0 {
		opts.MaxBuffer = DefaultMaxBuffer
	}
	e := &Engine{
		ch:       ch,
		resolver: resolver,
		opts:     opts,
		park:     retry.FromConfig(OpPark, opts.Poll.Park, opts.Sleeper),
		load:     retry.FromConfig(OpLoad, opts.Poll.Load, opts.Sleeper),
		eject:    retry.FromConfig(OpEject, opts.Poll.Eject, opts.Sleeper),
		motor:    retry.FromConfig("motor", opts.Poll.Motor, opts.Sleeper),
		sensor:   retry.FromConfig("sensor", opts.Poll.Sensor, opts.Sleeper),
		calibs:   map[string]*calibration.State{},
	}
	return e
}

// Init selects the model, resets the register file to the family
// power-on values and writes it to the device
func (e *Engine) Init(model string) error {
	if s := e.State(); s != Idle {
		return ErrWrongState{Op: OpInit, State: s}
	}
	m, err := e.resolver.Model(model)
	if err != nil {
		return err
	}
	sens, err := e.resolver.SensorOf(model)
	if err != nil {
		return err
	}
	mot, err := e.resolver.MotorOf(model)
	if err != nil {
		return err
	}
	fam, err := device.Lookup(m.Family)
	if err != nil {
		return err
	}
	file, err := regs.NewFile(fam.Registers())
	if err != nil {
		return err
	}
	layout := fam.Layout()
	if err := layout.Validate(file); err != nil {
		return err
	}
	log.Info("Initializing %s (%s, %s sensor %s)", m.Name, fam.Name(), sens.Type, sens.ID)
	if err := e.ch.BulkWrite(file.Snapshot()); err != nil {
		return err
	}

	e.family = fam
	e.layout = layout
	e.file = file
	e.committed = file.Snapshot()
	e.model, e.sens, e.mot = m, sens, mot
	e.document = false
	e.docSteps = 0
	e.reference = nil
	e.calibs = map[string]*calibration.State{}
	e.stream = nil
	e.inited = true
	e.setState(Idle)
	return nil
}

func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	if old := State(e.state.Swap(int32(s))); old != s {
		log.Debug("State %s -> %s", old, s)
	}
}

// Cancel asks the running operation to stop at the next line or
// calibration step. The head is parked or the document ejected before
// the operation returns ErrCancelled.
func (e *Engine) Cancel() {
	log.Info("Cancel requested in state %s", e.State())
	e.cancelled.Store(true)
}

func (e *Engine) Status() Status {
	st := Status{State: e.State().String()}
	if !e.inited {
		return st
	}
	st.Model = e.model.Name
	st.Family = e.family.Name()
	st.SheetFed = e.model.SheetFed
	st.Document = e.document
	for key := range e.calibs {
		st.Calibrated = append(st.Calibrated, key)
	}
	sort.Strings(st.Calibrated)
	if e.stream != nil {
		st.Scanning = true
		st.LinesRead = e.stream.Lines()
	}
	if e.reference != nil {
		ref := *e.reference
		st.Reference = &ref
	}
	return st
}

// Model returns the model selected by Init
func (e *Engine) Document() DocumentState {
	return DocumentState{Loaded: e.document, PositionSteps: e.docSteps}
}

func (e *Engine) Model() capability.Model {
	return e.model
}

// begin checks the engine may start op and saves the registers restored
// when op fails
func (e *Engine) begin(op string) error {
	if !e.inited {
		return ErrNotInitialized
	}
	if s := e.State(); s != Idle {
		return ErrWrongState{Op: op, State: s}
	}
	e.saved = e.file.Snapshot()
	return nil
}

// commit sends the registers changed since the last commit
func (e *Engine) commit() error {
	diff := e.file.Diff(e.committed)
	if len(diff) == 0 {
		return nil
	}
	log.Debug("Writing %d registers", len(diff))
	if err := e.ch.BulkWrite(diff); err != nil {
		return err
	}
	e.committed = e.file.Snapshot()
	return nil
}

func (e *Engine) apply(vals ...regs.FieldValue) error {
	return e.file.Apply(e.layout, vals)
}

func (e *Engine) start() error {
	if err := e.family.StartScan(e.ch, e.file); err != nil {
		return err
	}
	e.committed = e.file.Snapshot()
	return nil
}

func (e *Engine) stop() error {
	if err := e.family.StopScan(e.ch, e.file); err != nil {
		return err
	}
	e.committed = e.file.Snapshot()
	return nil
}

// fail brings the device to a safe state and returns err: motor stopped,
// registers restored and, unless parking is what failed, the head parked
func (e *Engine) fail(op string, err error, park bool) error {
	log.Error("%s failed: %s", op, err)
	if serr := e.stop(); serr != nil {
		log.Warning("%s: unable to stop the motor: %s", op, serr)
	}
	if rerr := e.file.Restore(e.saved); rerr != nil {
		log.Warning("%s: unable to restore registers: %s", op, rerr)
	} else if cerr := e.commit(); cerr != nil {
		log.Warning("%s: unable to write restored registers: %s", op, cerr)
	}
	if park {
		e.setState(Parking)
		if perr := e.parkHead(); perr != nil {
			log.Warning("%s: unable to park: %s", op, perr)
		}
	}
	e.stream = nil
	e.cancelled.Store(false)
	e.setState(Idle)
	return err
}

// checkCancel consumes a pending cancel request
func (e *Engine) checkCancel() error {
	if e.cancelled.Swap(false) {
		return ErrCancelled
	}
	return nil
}

// Registers returns the register file as last programmed
func (e *Engine) Registers() (regs.Snapshot, error) {
	if !e.inited {
		return nil, ErrNotInitialized
	}
	return e.file.Snapshot(), nil
}

// ReadRegister reads a register from the device
func (e *Engine) ReadRegister(addr regs.Addr) (byte, error) {
	if !e.inited {
		return 0, ErrNotInitialized
	}
	return e.ch.ReadRegister(addr)
}

// WriteRegister changes a declared register on the device
func (e *Engine) WriteRegister(addr regs.Addr, val byte) error {
	if err := e.begin(OpRegister); err != nil {
		return err
	}
	if err := e.file.Set(addr, val); err != nil {
		return err
	}
	return e.commit()
}

func calibrationKey(dpi int, color bool) string {
	mode := "gray"
	if color {
		mode = "color"
	}
	return fmt.Sprintf("%d/%s", dpi, mode)
}
