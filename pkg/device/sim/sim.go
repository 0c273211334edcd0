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

// Package sim emulates a scanner ASIC behind the device channel: register
// space, status bits, motor moves, a document sensor and an analog front
// end producing image data from the programmed registers.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"jinr.ru/greenlab/go-scan/pkg/device/ifc"
	"jinr.ru/greenlab/go-scan/pkg/regs"
)

const (
	// Never makes a poll driven event never happen
	Never = -1
	// RegisterSpace is the number of addressable registers
	RegisterSpace = 0x100
)

var ErrClosed = errors.New("channel closed")

// Image is the reflectance in [0, 1] of pixel x on line y of channel c
type Image func(x, y, c int) float32

func White(x, y, c int) float32 {
	return 1
}

type Options struct {
	Registers []regs.Reg
	Layout    regs.Layout
	PaperAddr regs.Addr
	PaperMask byte

	// ParkPolls is the number of status reads a reverse move takes
	ParkPolls int
	// MotorPolls is the number of status reads a forward feed takes
	MotorPolls int
	// HeadSteps is the initial distance of the head from home
	HeadSteps int

	// front end model: black = BlackBase + OffsetSlope*offset,
	// white = black + Span*exposure/NominalExposure*(1 + gain/GainSteps)
	BlackBase       float32
	OffsetSlope     float32
	Spans           [3]float32
	NominalExposure float32
	GainSteps       float32
	Image           Image

	// PaperAfterReads is the number of sensor reads before a sheet shows
	// up on its own
	PaperAfterReads int
	// SheetSteps is the length of a sheet in motor steps
	SheetSteps int
	// PaperOutAfterLines ends the sheet after that many scanned lines
	PaperOutAfterLines int
	// Jam keeps the sheet in the paper path whatever the motor does
	Jam bool
}

// DefaultOptions describe a healthy flatbed
func DefaultOptions(decl []regs.Reg, layout regs.Layout) Options {
	return Options{
		Registers:       decl,
		Layout:          layout,
		ParkPolls:       3,
		MotorPolls:      2,
		BlackBase:       -100,
		OffsetSlope:     1,
		Spans:           [3]float32{150, 160, 140},
		NominalExposure: 11000,
		GainSteps:       32,
		Image:           White,
		PaperAfterReads: Never,
		SheetSteps:      2000,
	}
}

type scan struct {
	channels  int
	bps       int
	pixels    int
	lineSeq   bool
	lines     int
	bpl       int
	next      int
	consumed  int
	pending   []byte
	offsets   [3]float32
	gains     [3]float32
	exposures [3]float32
}

// Sim implements ifc.Channel in memory
type Sim struct {
	mu   sync.Mutex
	opts Options
	file *regs.File

	head     int
	moving   bool
	reverse  bool
	feed     int
	polls    int
	scanning *scan
	started  bool

	sheet     bool
	travelled int
	closed    bool

	// Fail injects a transport failure for the named operation
	Fail func(op string) error
	// OnWrite sees every register write
	OnWrite func(r regs.Reg)
	// StallAfterLines keeps the buffer empty once that many lines of the
	// running scan were read, zero never stalls
	StallAfterLines int

	Writes      []regs.Reg
	DataWrites  [][]byte
	StatusReads int
	PaperReads  int
	Starts      int
	LinesRead   int
}

var _ ifc.Channel = (*Sim)(nil)

func New(opts Options) (*Sim, error) {
	space := make([]regs.Reg, RegisterSpace)
	for i := range space {
		space[i] = regs.Reg{Addr: regs.Addr(i)}
	}
	f, err := regs.NewFile(space)
	if err != nil {
		return nil, err
	}
	for _, r := range opts.Registers {
		if err := f.Set(r.Addr, r.Value); err != nil {
			return nil, err
		}
	}
	if opts.Image == nil {
		opts.Image = White
	}
	return &Sim{opts: opts, file: f, head: opts.HeadSteps}, nil
}

// Insert puts a sheet on the document sensor
func (s *Sim) Insert() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheet = true
	s.travelled = 0
}

func (s *Sim) SheetPresent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheet
}

func (s *Sim) Head() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

func (s *Sim) Moving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moving
}

func (s *Sim) Scanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning != nil
}

// Register returns the current value of a register
func (s *Sim) Register(addr regs.Addr) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := s.file.Get(addr)
	return v
}

// Field decodes a field from the register space
func (s *Sim) Field(id regs.FieldID) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.field(id)
}

func (s *Sim) field(id regs.FieldID) uint32 {
	fl, err := s.opts.Layout.Field(id)
	if err != nil {
		return 0
	}
	v, err := s.file.GetField(fl)
	if err != nil {
		return 0
	}
	return v
}

func (s *Sim) check(op string) error {
	if s.closed {
		return ifc.ErrTransport{Op: op, Err: ErrClosed}
	}
	if s.Fail != nil {
		if err := s.Fail(op); err != nil {
			return ifc.ErrTransport{Op: op, Err: err}
		}
	}
	return nil
}

func (s *Sim) ReadRegister(addr regs.Addr) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("read register"); err != nil {
		return 0, err
	}
	if s.opts.PaperMask != 0 && addr == s.opts.PaperAddr {
		s.PaperReads++
		if !s.sheet && s.opts.PaperAfterReads != Never && s.PaperReads > s.opts.PaperAfterReads {
			s.sheet = true
			s.travelled = 0
		}
		if s.sheet {
			return s.opts.PaperMask, nil
		}
		return 0, nil
	}
	v, err := s.file.Get(addr)
	if err != nil {
		return 0, ifc.ErrTransport{Op: "read register", Err: err}
	}
	return v, nil
}

func (s *Sim) WriteRegister(addr regs.Addr, val byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("write register"); err != nil {
		return err
	}
	return s.write(regs.Reg{Addr: addr, Value: val})
}

func (s *Sim) BulkWrite(set []regs.Reg) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("bulk write"); err != nil {
		return err
	}
	for _, r := range set {
		if err := s.write(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sim) write(r regs.Reg) error {
	if err := s.file.Set(r.Addr, r.Value); err != nil {
		return ifc.ErrTransport{Op: "write register", Err: err}
	}
	s.Writes = append(s.Writes, r)
	if s.OnWrite != nil {
		s.OnWrite(r)
	}
	start := s.field(regs.FieldStart) == 1
	switch {
	case start && !s.started:
		s.start()
	case !start && s.started:
		s.stop()
	}
	s.started = start
	return nil
}

func (s *Sim) start() {
	s.Starts++
	if s.field(regs.FieldMotorEnable) == 1 {
		s.moving = true
		s.reverse = s.field(regs.FieldReverse) == 1
		s.feed = int(s.field(regs.FieldFeedSteps))
		s.polls = s.opts.MotorPolls
		if s.reverse {
			s.polls = s.opts.ParkPolls
		}
		if s.polls == 0 {
			s.finishMove()
		}
	}
	lines := int(s.field(regs.FieldLineCount))
	if lines == 0 {
		return
	}
	sc := &scan{
		channels: 1,
		bps:      1,
		lineSeq:  s.field(regs.FieldLineSequential) == 1,
		lines:    lines,
	}
	if s.field(regs.FieldColor) == 1 {
		sc.channels = 3
	}
	if s.field(regs.FieldDepth16) == 1 {
		sc.bps = 2
	}
	words := int(s.field(regs.FieldWordsPerLine))
	sc.pixels = words / sc.bps
	if sc.lineSeq {
		sc.pixels /= sc.channels
	}
	sc.bpl = sc.pixels * sc.channels * sc.bps
	for c := 0; c < 3; c++ {
		sc.offsets[c] = float32(s.field(regs.OffsetFields[c]))
		sc.gains[c] = float32(s.field(regs.GainFields[c]))
		sc.exposures[c] = float32(s.field(regs.ExposureFields[c]))
	}
	s.scanning = sc
}

func (s *Sim) stop() {
	if s.scanning != nil && s.scanning.next > 0 && !s.reverse {
		s.head += s.scanning.next
	}
	s.moving = false
	s.polls = 0
	s.scanning = nil
}

func (s *Sim) finishMove() {
	if s.reverse {
		s.head = 0
	} else {
		s.head += s.feed
		if s.sheet {
			s.travelled += s.feed
			if s.travelled >= s.opts.SheetSteps && !s.opts.Jam {
				s.sheet = false
			}
		}
	}
	if s.scanning == nil {
		s.moving = false
	}
}

func (s *Sim) ReadStatus() (ifc.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("read status"); err != nil {
		return 0, err
	}
	s.StatusReads++
	// a scan move ends with the scan, not with status reads
	if s.moving && s.polls > 0 && s.scanning == nil {
		s.polls--
		if s.polls == 0 {
			s.finishMove()
		}
	}
	st := ifc.StatusPower
	if s.moving {
		st |= ifc.StatusMotorEnabled
		if s.polls == 0 {
			st |= ifc.StatusFeedFinished
		}
	} else {
		st |= ifc.StatusFeedFinished
		if s.head == 0 {
			st |= ifc.StatusHome
		}
	}
	if s.field(regs.FieldLamp) == 1 {
		st |= ifc.StatusLampOn
	}
	if sc := s.scanning; sc != nil {
		if sc.consumed >= sc.lines*sc.bpl {
			st |= ifc.StatusScanFinished | ifc.StatusBufferEmpty
		} else if s.StallAfterLines > 0 && sc.consumed >= s.StallAfterLines*sc.bpl {
			st |= ifc.StatusBufferEmpty
		}
	} else {
		st |= ifc.StatusBufferEmpty
	}
	return st, nil
}

func (s *Sim) BulkReadData(length int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("bulk read"); err != nil {
		return nil, err
	}
	sc := s.scanning
	if sc == nil {
		return nil, ifc.ErrTransport{Op: "bulk read", Err: errors.New("no scan in progress")}
	}
	if left := sc.lines*sc.bpl - sc.consumed; length > left {
		return nil, ifc.ErrTransport{Op: "bulk read", Err: fmt.Errorf("timeout waiting for %d bytes, %d left", length, left)}
	}
	for len(sc.pending) < length {
		sc.pending = append(sc.pending, s.line(sc, sc.next)...)
		sc.next++
	}
	out := make([]byte, length)
	copy(out, sc.pending)
	sc.pending = sc.pending[length:]
	sc.consumed += length
	s.LinesRead = sc.consumed / sc.bpl
	if s.opts.PaperOutAfterLines > 0 && s.LinesRead >= s.opts.PaperOutAfterLines {
		s.sheet = false
	}
	return out, nil
}

func (s *Sim) line(sc *scan, y int) []byte {
	out := make([]byte, 0, sc.bpl)
	put := func(x, c int) {
		v := s.level(sc, x, y, c)
		if sc.bps == 1 {
			out = append(out, byte(clamp(int(v), 0xff)))
			return
		}
		w := clamp(int(v*256), 0xffff)
		out = append(out, byte(w), byte(w>>8))
	}
	if sc.lineSeq {
		for c := 0; c < sc.channels; c++ {
			for x := 0; x < sc.pixels; x++ {
				put(x, c)
			}
		}
		return out
	}
	for x := 0; x < sc.pixels; x++ {
		for c := 0; c < sc.channels; c++ {
			put(x, c)
		}
	}
	return out
}

func (s *Sim) level(sc *scan, x, y, c int) float32 {
	black := s.opts.BlackBase + s.opts.OffsetSlope*sc.offsets[c]
	if s.field(regs.FieldLamp) != 1 {
		return black
	}
	exposure := float32(1)
	if sc.exposures[c] > 0 && s.opts.NominalExposure > 0 {
		exposure = sc.exposures[c] / s.opts.NominalExposure
	}
	gain := float32(1)
	if s.opts.GainSteps > 0 {
		gain += sc.gains[c] / s.opts.GainSteps
	}
	return black + s.opts.Image(x, y, c)*s.opts.Spans[c]*exposure*gain
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func (s *Sim) BulkWriteData(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("bulk write data"); err != nil {
		return err
	}
	s.DataWrites = append(s.DataWrites, append([]byte(nil), data...))
	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
