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

package capability

import "fmt"

type SensorType string

const (
	SensorCCD SensorType = "ccd"
	SensorCIS SensorType = "cis"
)

// Model describes one scanner product
type Model struct {
	Name      string `json:"name"`
	Vendor    string `json:"vendor"`
	Product   string `json:"product"`
	Family    string `json:"family"`
	Sensor    string `json:"sensor"`
	Motor     string `json:"motor"`
	VendorID  uint16 `json:"vendor_id"`
	ProductID uint16 `json:"product_id"`
	SheetFed  bool   `json:"sheet_fed"`

	// XOffsetMM is the distance from the sensor start to the scan area
	XOffsetMM float64 `json:"x_offset_mm"`
	// YOffsetMM is the distance from home to the scan area
	YOffsetMM float64 `json:"y_offset_mm"`
	// FlushMM is the paper path a CIS must clear after the logical area
	FlushMM float64 `json:"flush_mm"`
	// PostScanMM is the distance between the paper sensor and the scan line
	PostScanMM float64 `json:"post_scan_mm"`
	LoadMM     float64 `json:"load_mm"`
	EjectMM    float64 `json:"eject_mm"`
	WidthMM    float64 `json:"width_mm"`
	HeightMM   float64 `json:"height_mm"`

	CalibrationDPI int `json:"calibration_dpi"`
	SearchDPI      int `json:"search_dpi"`
	SearchLines    int `json:"search_lines"`
}

// Sensor is the static description of an image sensor
type Sensor struct {
	ID         string     `json:"id"`
	Type       SensorType `json:"type"`
	OpticalDPI int        `json:"optical_dpi"`
	// Pixels is the sensor width in optical pixels
	Pixels      int `json:"pixels"`
	DummyPixels int `json:"dummy_pixels"`
	// channel shifts in lines at the motor base resolution
	ShiftRed   int `json:"shift_red"`
	ShiftGreen int `json:"shift_green"`
	ShiftBlue  int `json:"shift_blue"`
	// StaggerLines offsets odd pixels of a staggered CCD
	StaggerLines int `json:"stagger_lines"`
	// LineSequential sensors deliver whole lines per color
	LineSequential bool `json:"line_sequential"`
	// Legacy selects the fixed optical resolution geometry path
	Legacy bool `json:"legacy"`
	// GainSteps is the number of gain codes that double the signal
	GainSteps int `json:"gain_steps"`
}

// SensorRow holds the timing of a sensor at one resolution
type SensorRow struct {
	Sensor     string      `json:"sensor"`
	DPI        int         `json:"dpi"`
	Color      bool        `json:"color"`
	OpticalDPI int         `json:"optical_dpi"`
	Exposure   int         `json:"exposure"`
	CkSel      int         `json:"cksel"`
	Registers  []RegPreset `json:"registers,omitempty"`
}

type RegPreset struct {
	Addr  uint16 `json:"addr"`
	Value byte   `json:"value"`
}

type Motor struct {
	ID      string `json:"id"`
	BaseDPI int    `json:"base_dpi"`
	// MaxDPI is the finest vertical resolution
	MaxDPI int `json:"max_dpi"`
	// Fast* describe the table used for feeding and parking
	FastStartDelay int     `json:"fast_start_delay"`
	FastEndDelay   int     `json:"fast_end_delay"`
	FastSteps      int     `json:"fast_steps"`
	FastExponent   float32 `json:"fast_exponent"`
}

// MotorRow holds the slope parameters of a motor at one resolution
type MotorRow struct {
	Motor      string  `json:"motor"`
	DPI        int     `json:"dpi"`
	Color      bool    `json:"color"`
	StepType   int     `json:"step_type"`
	StartDelay int     `json:"start_delay"`
	EndDelay   int     `json:"end_delay"`
	Steps      int     `json:"steps"`
	Exponent   float32 `json:"exponent"`
}

// Catalog is the full set of tables
type Catalog struct {
	Models     []Model     `json:"models"`
	Sensors    []Sensor    `json:"sensors"`
	Motors     []Motor     `json:"motors"`
	SensorRows []SensorRow `json:"sensor_rows"`
	MotorRows  []MotorRow  `json:"motor_rows"`
}

// Merge returns a catalog with the entries of c ahead of other,
// so entries of c win first-match lookups
func (c *Catalog) Merge(other *Catalog) *Catalog {
	out := &Catalog{}
	out.Models = append(append(out.Models, c.Models...), other.Models...)
	out.Sensors = append(append(out.Sensors, c.Sensors...), other.Sensors...)
	out.Motors = append(append(out.Motors, c.Motors...), other.Motors...)
	out.SensorRows = append(append(out.SensorRows, c.SensorRows...), other.SensorRows...)
	out.MotorRows = append(append(out.MotorRows, c.MotorRows...), other.MotorRows...)
	return out
}

func rowKey(id string, dpi int, color bool) string {
	mode := "gray"
	if color {
		mode = "color"
	}
	return fmt.Sprintf("%s/%d/%s", id, dpi, mode)
}
