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
	"jinr.ru/greenlab/go-scan/pkg/calibration"
	"jinr.ru/greenlab/go-scan/pkg/geometry"
	"jinr.ru/greenlab/go-scan/pkg/log"
)

const (
	DefaultSearchDPI   = 75
	DefaultSearchLines = 60
	// MinContrast is the smallest row level spread that shows an edge
	MinContrast = 32
)

// SearchStartPosition scans a gray preview strip from home and locates
// the top left corner of the glass. Later scans are placed relative to
// the point found. Sheet-fed scanners have no reference to search.
func (e *Engine) SearchStartPosition() (ReferencePoint, error) {
	if err := e.begin(OpSearch); err != nil {
		return ReferencePoint{}, err
	}
	if e.model.SheetFed {
		return ReferencePoint{}, nil
	}
	e.cancelled.Store(false)
	ref, err := e.search()
	if err != nil {
		return ReferencePoint{}, e.fail(OpSearch, err, true)
	}
	e.setState(Idle)
	return ref, nil
}

func (e *Engine) search() (ReferencePoint, error) {
	dpi := e.model.SearchDPI
	if dpi == 0 {
		dpi = DefaultSearchDPI
	}
	lines := e.model.SearchLines
	if lines == 0 {
		lines = DefaultSearchLines
	}
	e.setState(Parking)
	if err := e.parkHead(); err != nil {
		return ReferencePoint{}, err
	}
	e.setState(Seeking)

	srow, err := e.resolver.SensorRow(e.model.Name, e.sens.ID, dpi, false)
	if err != nil {
		return ReferencePoint{}, err
	}
	mrow, err := e.resolver.MotorRow(e.model.Name, e.mot.ID, dpi, false)
	if err != nil {
		return ReferencePoint{}, err
	}
	in := geometry.Input{Model: e.model, Sensor: e.sens, Motor: e.mot, SensorRow: srow, MotorRow: mrow}
	in.Model.XOffsetMM = 0
	in.Model.YOffsetMM = 0
	in.Model.FlushMM = 0
	setup, err := e.plan(in, geometry.Request{
		DPI:    dpi,
		Depth:  8,
		Pixels: e.fullWidth(dpi),
		Lines:  lines,
	})
	if err != nil {
		return ReferencePoint{}, err
	}
	st, ok := e.calibs[calibrationKey(dpi, false)]
	if !ok {
		st = calibration.NewState(1, InitialOffset, 0, srow.Exposure)
	}
	if err := e.programScan(in, setup, st); err != nil {
		return ReferencePoint{}, err
	}
	if err := e.start(); err != nil {
		return ReferencePoint{}, err
	}
	rows, err := e.readAll(setup)
	if err != nil {
		return ReferencePoint{}, err
	}
	if err := e.stop(); err != nil {
		return ReferencePoint{}, err
	}
	if err := e.checkCancel(); err != nil {
		return ReferencePoint{}, err
	}

	ref := findReference(rows, dpi)
	if ref.Found {
		log.Info("Reference point at %.2fmm, %.2fmm", ref.XMM, ref.YMM)
		e.reference = &ref
	} else {
		log.Warning("No reference edge found in %d preview lines", len(rows))
	}
	e.setState(Parking)
	if err := e.parkHead(); err != nil {
		return ReferencePoint{}, err
	}
	return ref, nil
}

// findReference takes the first row brighter than the middle of the
// row levels as the top edge, then the first such column below it as
// the left edge
func findReference(rows [][][]uint16, dpi int) ReferencePoint {
	ref := ReferencePoint{DPI: dpi}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return ref
	}
	width := len(rows[0][0])
	means := make([]int, len(rows))
	for y, row := range rows {
		sum := 0
		for _, v := range row[0] {
			sum += int(v)
		}
		means[y] = sum / width
	}
	lo, hi := spread(means)
	if hi-lo < MinContrast {
		return ref
	}
	top := -1
	for y, m := range means {
		if m > (lo+hi)/2 {
			top = y
			break
		}
	}
	if top < 0 {
		return ref
	}

	cols := make([]int, width)
	for _, row := range rows[top:] {
		for x, v := range row[0] {
			cols[x] += int(v)
		}
	}
	for x := range cols {
		cols[x] /= len(rows) - top
	}
	lo, hi = spread(cols)
	left := 0
	if hi-lo >= MinContrast {
		for x, m := range cols {
			if m > (lo+hi)/2 {
				left = x
				break
			}
		}
	}
	ref.Found = true
	ref.X = left
	ref.Y = top
	ref.XMM = geometry.DotsToMM(left, dpi)
	ref.YMM = geometry.DotsToMM(top, dpi)
	return ref
}

func spread(vals []int) (lo, hi int) {
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
