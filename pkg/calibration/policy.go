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

// Band is an inclusive target range of 8 bit sample means
type Band struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Distance is negative below the band, positive above and zero inside
func (b Band) Distance(v int) int {
	switch {
	case v < b.Low:
		return v - b.Low
	case v > b.High:
		return v - b.High
	}
	return 0
}

func (b Band) Mid() int {
	return (b.Low + b.High) / 2
}

// Policy converts a distance from the band into a correction step.
// The step grows with the distance and keeps its sign.
type Policy struct {
	Ratio float32
	Min   int
	Max   int
}

func (p Policy) Step(distance int) int {
	if distance == 0 {
		return 0
	}
	mag := distance
	if mag < 0 {
		mag = -mag
	}
	step := int(float32(mag) * p.Ratio)
	if step < p.Min {
		step = p.Min
	}
	if p.Max > 0 && step > p.Max {
		step = p.Max
	}
	if distance < 0 {
		return -step
	}
	return step
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
