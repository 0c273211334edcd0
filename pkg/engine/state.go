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

import "fmt"

// State is the phase of the scan lifecycle
type State int32

const (
	Idle State = iota
	Parking
	AwaitingDocument
	Loading
	Seeking
	CoarseCalibrating
	OffsetCalibrating
	GainCalibrating
	ShadeCalibrating
	Scanning
	Ejecting
)

var stateNames = map[State]string{
	Idle:              "Idle",
	Parking:           "Parking",
	AwaitingDocument:  "AwaitingDocument",
	Loading:           "Loading",
	Seeking:           "Seeking",
	CoarseCalibrating: "CoarseCalibrating",
	OffsetCalibrating: "OffsetCalibrating",
	GainCalibrating:   "GainCalibrating",
	ShadeCalibrating:  "ShadeCalibrating",
	Scanning:          "Scanning",
	Ejecting:          "Ejecting",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Operation names used in errors and logs
const (
	OpInit      = "init"
	OpSearch    = "search"
	OpCalibrate = "calibrate"
	OpBeginScan = "begin scan"
	OpReadLine  = "read line"
	OpEndScan   = "end scan"
	OpPark      = "park"
	OpLoad      = "load"
	OpEject     = "eject"
	OpRegister  = "register"
	OpReadData  = "read data"
)

// Status is a snapshot of the engine for the outer layers
type Status struct {
	State      string          `json:"state"`
	Model      string          `json:"model,omitempty"`
	Family     string          `json:"family,omitempty"`
	SheetFed   bool            `json:"sheet_fed"`
	Document   bool            `json:"document"`
	Calibrated []string        `json:"calibrated,omitempty"`
	Scanning   bool            `json:"scanning"`
	LinesRead  int             `json:"lines_read"`
	Reference  *ReferencePoint `json:"reference,omitempty"`
}

// ReferencePoint is the top-left corner of the calibration area found by
// SearchStartPosition
type ReferencePoint struct {
	Found bool    `json:"found"`
	DPI   int     `json:"dpi"`
	X     int     `json:"x"`
	Y     int     `json:"y"`
	XMM   float64 `json:"x_mm"`
	YMM   float64 `json:"y_mm"`
}

// DocumentState is the sheet-fed document position
type DocumentState struct {
	Loaded bool `json:"loaded"`
	// PositionSteps is how far the document travelled since it was loaded
	PositionSteps int `json:"position_steps"`
}
