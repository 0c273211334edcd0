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
	"fmt"
	"time"
)

// Channel holds the analog front-end settings of one color channel and
// the last measured levels
type Channel struct {
	Offset   int `json:"offset"`
	Gain     int `json:"gain"`
	Exposure int `json:"exposure"`
	Black    int `json:"black"`
	White    int `json:"white"`
}

type State struct {
	Channels         []Channel `json:"channels"`
	OffsetIterations int       `json:"offset_iterations"`
	GainIterations   int       `json:"gain_iterations"`
	// LastDeltas are the corrections applied by the last iteration
	LastDeltas []int `json:"last_deltas,omitempty"`
	Converged  bool  `json:"converged"`
	// Degraded is set when an iteration cap was hit and the best values
	// seen were kept instead
	Degraded bool `json:"degraded"`
	// Shading holds the per pixel dark level and coefficient words
	Shading []uint16  `json:"shading,omitempty"`
	Created time.Time `json:"created"`
}

// NewState starts every channel from the same settings
func NewState(channels, offset, gain, exposure int) *State {
	s := &State{Channels: make([]Channel, channels)}
	for c := range s.Channels {
		s.Channels[c] = Channel{Offset: offset, Gain: gain, Exposure: exposure}
	}
	return s
}

func (s *State) Iterations() int {
	return s.OffsetIterations + s.GainIterations
}

func (s *State) Clone() *State {
	c := *s
	c.Channels = append([]Channel(nil), s.Channels...)
	c.LastDeltas = append([]int(nil), s.LastDeltas...)
	c.Shading = append([]uint16(nil), s.Shading...)
	return &c
}

func (s *State) String() string {
	out := fmt.Sprintf("iterations=%d converged=%t degraded=%t", s.Iterations(), s.Converged, s.Degraded)
	for i, ch := range s.Channels {
		out += fmt.Sprintf(" ch%d{offset=%d gain=%d exposure=%d black=%d white=%d}",
			i, ch.Offset, ch.Gain, ch.Exposure, ch.Black, ch.White)
	}
	return out
}
