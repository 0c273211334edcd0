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

package srv

import (
	"bufio"
	"fmt"
	"io"

	"jinr.ru/greenlab/go-scan/pkg/geometry"
)

const (
	ImageContentType = "image/x-portable-anymap"
	LinesHeader      = "X-Scan-Lines"
	PaperOutHeader   = "X-Paper-Out"
)

// Image collects scan lines and writes them as a binary PNM file,
// P5 for gray and P6 for color
type Image struct {
	channels int
	pixels   int
	depth    int
	lines    [][][]uint16
}

func NewImage(setup *geometry.Setup) *Image {
	return &Image{
		channels: setup.Channels,
		pixels:   setup.Pixels,
		depth:    setup.Depth,
	}
}

func (i *Image) Add(line [][]uint16) {
	i.lines = append(i.lines, line)
}

func (i *Image) Lines() int {
	return len(i.lines)
}

func (i *Image) header() string {
	magic := "P5"
	if i.channels == 3 {
		magic = "P6"
	}
	maxval := 255
	if i.depth == 16 {
		maxval = 65535
	}
	return fmt.Sprintf("%s\n%d %d\n%d\n", magic, i.pixels, len(i.lines), maxval)
}

// WriteTo writes the header and the pixel data, samples of 16 bit images
// most significant byte first
func (i *Image) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	n, err := bw.WriteString(i.header())
	written := int64(n)
	if err != nil {
		return written, err
	}
	for _, line := range i.lines {
		for x := 0; x < i.pixels; x++ {
			for c := 0; c < i.channels; c++ {
				var v uint16
				if c < len(line) && x < len(line[c]) {
					v = line[c][x]
				}
				if i.depth == 16 {
					bw.WriteByte(byte(v >> 8))
					written++
				}
				if err := bw.WriteByte(byte(v)); err != nil {
					return written, err
				}
				written++
			}
		}
	}
	return written, bw.Flush()
}
