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

// Package geometry turns a scan request and the resolved capability rows
// into the exact pixel window, line count, transfer sizes and register
// values of a scan, and reorders the raw transfer into output lines.
package geometry

import (
	"fmt"

	"jinr.ru/greenlab/go-scan/pkg/capability"
	"jinr.ru/greenlab/go-scan/pkg/regs"
)

const (
	MMPerInch = 25.4
	// BufferAlign is the granularity of transfer buffers
	BufferAlign = 512
	// OutLines is the number of output lines buffered after reordering
	OutLines = 8
)

// Request is a scan area in units of the requested resolution
type Request struct {
	DPI    int  `json:"dpi"`
	Color  bool `json:"color"`
	Depth  int  `json:"depth"`
	X      int  `json:"x"`
	Y      int  `json:"y"`
	Pixels int  `json:"pixels"`
	Lines  int  `json:"lines"`
	// DocumentSteps is how far a loaded document already travelled
	DocumentSteps int `json:"document_steps,omitempty"`
	// Calibration scans in place with no feed and no margins
	Calibration bool `json:"calibration,omitempty"`
}

func (r Request) Channels() int {
	if r.Color {
		return 3
	}
	return 1
}

// Input is everything the planner reads from the capability tables
type Input struct {
	Model     capability.Model
	Sensor    capability.Sensor
	Motor     capability.Motor
	SensorRow capability.SensorRow
	MotorRow  capability.MotorRow
}

// Setup is the derived geometry of one scan
type Setup struct {
	Strategy string `json:"strategy"`
	DPI      int    `json:"dpi"`
	YDPI     int    `json:"ydpi"`
	Color    bool   `json:"color"`
	Channels int    `json:"channels"`
	Depth    int    `json:"depth"`

	OpticalDPI int `json:"optical_dpi"`
	DPISet     int `json:"dpiset"`
	CkSel      int `json:"cksel"`
	StartPixel int `json:"start_pixel"`
	EndPixel   int `json:"end_pixel"`
	// RawPixels is the number of pixels transferred per channel and line
	RawPixels int `json:"raw_pixels"`
	// Pixels is the number of pixels per channel handed to the caller
	Pixels int `json:"pixels"`
	Shrink int `json:"shrink"`

	Lines      int    `json:"lines"`
	LineCount  int    `json:"line_count"`
	Shifts     [3]int `json:"shifts"`
	MaxShift   int    `json:"max_shift"`
	Stagger    int    `json:"stagger"`
	FlushLines int    `json:"flush_lines"`
	MoveSteps  int    `json:"move_steps"`
	StepType   int    `json:"step_type"`
	Exposure   int    `json:"exposure"`

	LineSequential  bool `json:"line_sequential"`
	WordsPerLine    int  `json:"words_per_line"`
	BytesPerLine    int  `json:"bytes_per_line"`
	OutBytesPerLine int  `json:"out_bytes_per_line"`

	ReadBufferSize   int `json:"read_buffer_size"`
	ShrinkBufferSize int `json:"shrink_buffer_size"`
	OutBufferSize    int `json:"out_buffer_size"`
}

// Margin is the number of raw lines read ahead of the output
func (s *Setup) Margin() int {
	return s.MaxShift + s.Stagger
}

// TotalBytes is the raw transfer size of the whole scan
func (s *Setup) TotalBytes() int {
	return s.LineCount * s.BytesPerLine
}

func (s *Setup) BytesPerSample() int {
	return s.Depth / 8
}

// Deltas lists the register fields the setup programs
func (s *Setup) Deltas() []regs.FieldValue {
	return []regs.FieldValue{
		{ID: regs.FieldStartPixel, Value: uint32(s.StartPixel)},
		{ID: regs.FieldEndPixel, Value: uint32(s.EndPixel)},
		{ID: regs.FieldDPISet, Value: uint32(s.DPISet)},
		{ID: regs.FieldCkSel, Value: uint32(s.CkSel - 1)},
		{ID: regs.FieldWordsPerLine, Value: uint32(s.WordsPerLine)},
		{ID: regs.FieldLineCount, Value: uint32(s.LineCount)},
		{ID: regs.FieldFeedSteps, Value: uint32(s.MoveSteps)},
		{ID: regs.FieldExposure, Value: uint32(s.Exposure)},
		{ID: regs.FieldStepType, Value: uint32(s.StepType)},
		{ID: regs.FieldColor, Value: boolField(s.Color)},
		{ID: regs.FieldLineSequential, Value: boolField(s.LineSequential && s.Color)},
		{ID: regs.FieldDepth16, Value: boolField(s.Depth == 16)},
	}
}

func (s *Setup) String() string {
	return fmt.Sprintf("%s %ddpi %dx%d ch=%d depth=%d window=[%d,%d) cksel=%d dpiset=%d lincnt=%d bpl=%d",
		s.Strategy, s.DPI, s.Pixels, s.Lines, s.Channels, s.Depth, s.StartPixel, s.EndPixel,
		s.CkSel, s.DPISet, s.LineCount, s.BytesPerLine)
}

func boolField(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func align(n, to int) int {
	return (n + to - 1) / to * to
}

// MMToDots converts a length to dots at dpi, rounded to the nearest dot
func MMToDots(mm float64, dpi int) int {
	return int(mm*float64(dpi)/MMPerInch + 0.5)
}

// DotsToMM is the inverse of MMToDots
func DotsToMM(dots, dpi int) float64 {
	return float64(dots) * MMPerInch / float64(dpi)
}
