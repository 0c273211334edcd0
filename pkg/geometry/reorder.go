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
	"encoding/binary"
	"fmt"
)

// Reorderer rebuilds output lines from raw transfer lines. Colors
// captured on different sensor rows are realigned, odd pixels of
// staggered sensors are pulled from their delayed row and legacy scans
// are shrunk to the requested resolution.
type Reorderer struct {
	setup  *Setup
	lines  [][][]uint16
	first  int
	pushed int
	popped int
	limit  int
}

func NewReorderer(s *Setup) *Reorderer {
	return &Reorderer{setup: s, limit: s.Lines}
}

// Push decodes one raw line of Setup.BytesPerLine bytes
func (r *Reorderer) Push(raw []byte) error {
	s := r.setup
	if len(raw) != s.BytesPerLine {
		return fmt.Errorf("raw line of %d bytes, expected %d", len(raw), s.BytesPerLine)
	}
	bps := s.BytesPerSample()
	line := make([][]uint16, s.Channels)
	for c := range line {
		line[c] = make([]uint16, s.RawPixels)
	}
	for x := 0; x < s.RawPixels; x++ {
		for c := 0; c < s.Channels; c++ {
			var pos int
			if s.LineSequential {
				pos = (c*s.RawPixels + x) * bps
			} else {
				pos = (x*s.Channels + c) * bps
			}
			if bps == 2 {
				line[c][x] = binary.LittleEndian.Uint16(raw[pos:])
			} else {
				line[c][x] = uint16(raw[pos])
			}
		}
	}
	r.lines = append(r.lines, line)
	r.pushed++
	return nil
}

// Ready reports whether Pop has a line to return
func (r *Reorderer) Ready() bool {
	return r.popped < r.limit && r.pushed > r.popped+r.setup.Margin()
}

// Done reports whether every output line was produced
func (r *Reorderer) Done() bool {
	return r.popped >= r.limit
}

// Produced is the number of output lines returned so far
func (r *Reorderer) Produced() int {
	return r.popped
}

// Pending is the number of raw lines still needed to finish
func (r *Reorderer) Pending() int {
	n := r.limit + r.setup.Margin() - r.pushed
	if n < 0 || r.Done() {
		return 0
	}
	return n
}

// Truncate lowers the number of output lines, used when the document
// ends before the requested area
func (r *Reorderer) Truncate(lines int) {
	if lines < r.popped {
		lines = r.popped
	}
	if lines < r.limit {
		r.limit = lines
	}
}

// Limit is the number of output lines the reorderer will produce
func (r *Reorderer) Limit() int {
	return r.limit
}

// Pop returns the next output line as one slice of samples per channel
func (r *Reorderer) Pop() ([][]uint16, error) {
	if !r.Ready() {
		return nil, fmt.Errorf("output line %d is not complete", r.popped)
	}
	s := r.setup
	i := r.popped
	out := make([][]uint16, s.Channels)
	for c := 0; c < s.Channels; c++ {
		row := make([]uint16, s.RawPixels)
		for x := range row {
			src := i + s.Shifts[c]
			if x%2 == 1 {
				src += s.Stagger
			}
			row[x] = r.lines[src-r.first][c][x]
		}
		out[c] = shrink(row, s.Shrink, s.Pixels)
	}
	r.popped++
	// the next output line never looks behind its own index
	drop := r.popped - r.first
	r.lines = r.lines[drop:]
	r.first += drop
	return out, nil
}

func shrink(row []uint16, factor, pixels int) []uint16 {
	if factor <= 1 {
		return row
	}
	out := make([]uint16, pixels)
	for j := range out {
		var sum int
		for k := 0; k < factor; k++ {
			sum += int(row[j*factor+k])
		}
		out[j] = uint16(sum / factor)
	}
	return out
}
