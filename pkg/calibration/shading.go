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
	"encoding/binary"
	"fmt"
)

const (
	// ShadingUnity is the coefficient that leaves a pixel unchanged
	ShadingUnity = 0x4000
	// ShadingTarget is the 16 bit level a white pixel is scaled to
	ShadingTarget = 0xfa00
)

// Means returns the mean level of every channel scaled to 8 bits
func Means(line [][]uint16, depth int) []int {
	out := make([]int, len(line))
	for c, samples := range line {
		if len(samples) == 0 {
			continue
		}
		var sum int
		for _, v := range samples {
			sum += int(v)
		}
		out[c] = (sum / len(samples)) >> uint(depth-8)
	}
	return out
}

// Average returns the per pixel mean of several lines
func Average(lines [][][]uint16) ([][]uint16, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("no lines to average")
	}
	channels := len(lines[0])
	out := make([][]uint16, channels)
	for c := 0; c < channels; c++ {
		pixels := len(lines[0][c])
		sums := make([]int, pixels)
		for _, line := range lines {
			if len(line) != channels || len(line[c]) != pixels {
				return nil, fmt.Errorf("lines differ in shape")
			}
			for x, v := range line[c] {
				sums[x] += int(v)
			}
		}
		out[c] = make([]uint16, pixels)
		for x, sum := range sums {
			out[c][x] = uint16(sum / len(lines))
		}
	}
	return out, nil
}

// Shading computes the per pixel correction from averaged dark and white
// lines at 16 bit scale. The result holds a dark level and a coefficient
// word for every pixel of every channel, channels interleaved per pixel.
func Shading(dark, white [][]uint16) ([]uint16, error) {
	if len(dark) != len(white) {
		return nil, fmt.Errorf("dark has %d channels, white has %d", len(dark), len(white))
	}
	if len(dark) == 0 {
		return nil, fmt.Errorf("no channels")
	}
	pixels := len(dark[0])
	out := make([]uint16, 0, 2*pixels*len(dark))
	for x := 0; x < pixels; x++ {
		for c := range dark {
			if len(dark[c]) != pixels || len(white[c]) != pixels {
				return nil, fmt.Errorf("channel %d differs in width", c)
			}
			d, w := int(dark[c][x]), int(white[c][x])
			coeff := 0xffff
			if w > d {
				coeff = ShadingUnity * ShadingTarget / (w - d)
				if coeff > 0xffff {
					coeff = 0xffff
				}
			}
			out = append(out, uint16(d), uint16(coeff))
		}
	}
	return out, nil
}

// ShadingBytes encodes shading words little-endian for upload
func ShadingBytes(words []uint16) []byte {
	out := make([]byte, 2*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint16(out[2*i:], w)
	}
	return out
}

// Scale8 widens an 8 bit line to the 16 bit scale used by Shading
func Scale8(line [][]uint16) [][]uint16 {
	out := make([][]uint16, len(line))
	for c, samples := range line {
		out[c] = make([]uint16, len(samples))
		for x, v := range samples {
			out[c][x] = v << 8
		}
	}
	return out
}
