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
	"fmt"

	"jinr.ru/greenlab/go-scan/pkg/capability"
)

// Strategy derives the geometry for one kind of sensor
type Strategy interface {
	Name() string
	Plan(in Input, req Request) (*Setup, error)
}

// StrategyFor selects the strategy matching the sensor
func StrategyFor(sensor capability.Sensor) Strategy {
	switch {
	case sensor.Legacy:
		return LegacyStrategy{}
	case sensor.Type == capability.SensorCIS:
		return CISStrategy{}
	default:
		return CCDStrategy{}
	}
}

// CCDStrategy divides the sensor clock to scan below the optical
// resolution and compensates the per-color line distance
type CCDStrategy struct{}

func (CCDStrategy) Name() string {
	return "ccd"
}

func (s CCDStrategy) Plan(in Input, req Request) (*Setup, error) {
	setup, err := base(s.Name(), in, req)
	if err != nil {
		return nil, err
	}
	window(setup, in, req, SelectCkSel(setup.OpticalDPI, req.DPI, in.SensorRow.CkSel))
	if !req.Calibration {
		shifts(setup, in)
	}
	return finish(setup, in, req)
}

// CISStrategy has no color line distance but must run the line counter
// until the paper path is flushed
type CISStrategy struct{}

func (CISStrategy) Name() string {
	return "cis"
}

func (s CISStrategy) Plan(in Input, req Request) (*Setup, error) {
	setup, err := base(s.Name(), in, req)
	if err != nil {
		return nil, err
	}
	window(setup, in, req, SelectCkSel(setup.OpticalDPI, req.DPI, in.SensorRow.CkSel))
	if !req.Calibration && in.Model.FlushMM > 0 {
		flushSteps := MMToDots(in.Model.FlushMM, in.Motor.BaseDPI) - req.DocumentSteps
		if flushSteps > 0 {
			setup.FlushLines = flushSteps * setup.YDPI / in.Motor.BaseDPI
		}
	}
	return finish(setup, in, req)
}

// LegacyStrategy scans every line at the optical resolution and shrinks
// horizontally in software
type LegacyStrategy struct{}

func (LegacyStrategy) Name() string {
	return "legacy"
}

func (s LegacyStrategy) Plan(in Input, req Request) (*Setup, error) {
	setup, err := base(s.Name(), in, req)
	if err != nil {
		return nil, err
	}
	if setup.OpticalDPI%req.DPI != 0 {
		return nil, ErrInvalidGeometry{What: fmt.Sprintf("%d dpi does not divide optical %d dpi", req.DPI, setup.OpticalDPI)}
	}
	shrink := setup.OpticalDPI / req.DPI
	start := xOffset(in, setup.OpticalDPI) + req.X*shrink
	setup.CkSel = 1
	setup.DPISet = setup.OpticalDPI
	setup.StartPixel = start
	setup.EndPixel = start + req.Pixels*shrink
	setup.RawPixels = setup.EndPixel - setup.StartPixel
	setup.Shrink = shrink
	setup.Pixels = setup.RawPixels / shrink
	if !req.Calibration {
		shifts(setup, in)
	}
	return finish(setup, in, req)
}

func base(name string, in Input, req Request) (*Setup, error) {
	switch {
	case req.DPI <= 0:
		return nil, ErrInvalidGeometry{What: fmt.Sprintf("resolution %d", req.DPI)}
	case req.Pixels <= 0 || req.Lines <= 0:
		return nil, ErrInvalidGeometry{What: fmt.Sprintf("empty area %dx%d", req.Pixels, req.Lines)}
	case req.X < 0 || req.Y < 0:
		return nil, ErrInvalidGeometry{What: fmt.Sprintf("negative offset %d,%d", req.X, req.Y)}
	case req.Depth != 8 && req.Depth != 16:
		return nil, ErrInvalidGeometry{What: fmt.Sprintf("depth %d", req.Depth)}
	case in.SensorRow.DPI != req.DPI || in.SensorRow.Color != req.Color:
		return nil, ErrInvalidGeometry{What: "sensor row does not match the request"}
	case in.Motor.BaseDPI <= 0:
		return nil, ErrInvalidGeometry{What: "motor without base resolution"}
	case in.Motor.MaxDPI > 0 && req.DPI > in.Motor.MaxDPI:
		return nil, ErrInvalidGeometry{What: fmt.Sprintf("%d dpi exceeds motor resolution %d", req.DPI, in.Motor.MaxDPI)}
	}
	if in.Model.WidthMM > 0 {
		if mm := float64(req.X+req.Pixels) * MMPerInch / float64(req.DPI); mm > in.Model.WidthMM+0.05 {
			return nil, ErrInvalidGeometry{What: fmt.Sprintf("area is %.1fmm wide, scanner has %.1fmm", mm, in.Model.WidthMM)}
		}
	}
	optical := in.SensorRow.OpticalDPI
	if optical == 0 {
		optical = in.Sensor.OpticalDPI
	}
	if optical < req.DPI {
		return nil, ErrInvalidGeometry{What: fmt.Sprintf("%d dpi exceeds optical %d dpi", req.DPI, optical)}
	}
	return &Setup{
		Strategy:       name,
		DPI:            req.DPI,
		YDPI:           req.DPI,
		Color:          req.Color,
		Channels:       req.Channels(),
		Depth:          req.Depth,
		OpticalDPI:     optical,
		Shrink:         1,
		Lines:          req.Lines,
		Exposure:       in.SensorRow.Exposure,
		StepType:       in.MotorRow.StepType,
		LineSequential: in.Sensor.LineSequential,
	}, nil
}

// xOffset is the first pixel of the scan area in optical pixels
func xOffset(in Input, optical int) int {
	return MMToDots(in.Model.XOffsetMM, optical) + in.Sensor.DummyPixels
}

// window sets the pixel window in divided sensor clocks
func window(s *Setup, in Input, req Request, ckSel int) {
	startOpt := xOffset(in, s.OpticalDPI) + req.X*s.OpticalDPI/req.DPI
	span := req.Pixels * s.OpticalDPI / req.DPI
	s.CkSel = ckSel
	s.DPISet = req.DPI * ckSel
	s.StartPixel = startOpt / ckSel
	s.EndPixel = s.StartPixel + span/ckSel
	s.RawPixels = (s.EndPixel - s.StartPixel) * s.DPISet / s.OpticalDPI
	s.Pixels = s.RawPixels
}

// shifts converts the color line distances to the scan resolution
func shifts(s *Setup, in Input) {
	if s.Color {
		for c, shift := range [3]int{in.Sensor.ShiftRed, in.Sensor.ShiftGreen, in.Sensor.ShiftBlue} {
			s.Shifts[c] = shift * s.YDPI / in.Motor.BaseDPI
			if s.Shifts[c] > s.MaxShift {
				s.MaxShift = s.Shifts[c]
			}
		}
	}
	if in.Sensor.StaggerLines > 0 && 2*s.DPI > in.Sensor.OpticalDPI {
		s.Stagger = in.Sensor.StaggerLines * s.YDPI / in.Motor.BaseDPI
	}
}

func finish(s *Setup, in Input, req Request) (*Setup, error) {
	if s.EndPixel <= s.StartPixel || s.RawPixels <= 0 || s.Pixels <= 0 {
		return nil, ErrInvalidGeometry{What: fmt.Sprintf("empty pixel window [%d,%d)", s.StartPixel, s.EndPixel)}
	}
	bps := s.BytesPerSample()
	s.LineCount = s.Lines + s.Margin() + s.FlushLines
	if !req.Calibration {
		s.MoveSteps = MMToDots(in.Model.YOffsetMM, in.Motor.BaseDPI) + req.Y*in.Motor.BaseDPI/req.DPI
	}

	s.WordsPerLine = s.RawPixels * bps
	if s.LineSequential {
		s.WordsPerLine *= s.Channels
	}
	s.BytesPerLine = s.RawPixels * s.Channels * bps
	s.OutBytesPerLine = s.Pixels * s.Channels * bps

	requested := align(s.BytesPerLine, BufferAlign)
	s.ReadBufferSize = 2*requested + s.Margin()*s.BytesPerLine
	s.ShrinkBufferSize = requested * s.Pixels / s.RawPixels
	s.OutBufferSize = OutLines * s.OutBytesPerLine
	if s.ReadBufferSize <= 0 || s.ShrinkBufferSize <= 0 || s.OutBufferSize <= 0 {
		return nil, ErrInvalidGeometry{What: "zero sized buffer"}
	}
	return s, nil
}

// Plan selects the strategy for the sensor and derives the setup
func Plan(in Input, req Request) (*Setup, error) {
	return StrategyFor(in.Sensor).Plan(in, req)
}
