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

// Package calibration adjusts the analog front-end until the dark and
// white levels of every channel land inside their target bands.
//
// The controller never talks to the device. It asks a Sampler to program
// the current values and measure a line, so the same loop runs against
// hardware and against simulated channels.
package calibration

import (
	"jinr.ru/greenlab/go-scan/pkg/config"
	"jinr.ru/greenlab/go-scan/pkg/log"
)

const (
	MaxOffset = 255
	MaxGain   = 63
)

// Sampler programs st and returns the mean 8 bit level of every channel,
// measured with the lamp on or off
type Sampler interface {
	Sample(st *State, lamp bool) ([]int, error)
}

type Options struct {
	Black            Band
	White            Band
	OffsetIterations int
	TotalIterations  int
	Policy           Policy
	// GainSteps is the number of gain codes that add one unit of
	// amplification
	GainSteps int
	// Exposure adjustments are only made for CIS sensors
	CIS          bool
	ExposureStep int
	MinExposure  int
	MaxExposure  int
}

// OptionsFromConfig ...
func OptionsFromConfig(cfg *config.CalibrationConfig) Options {
	return Options{
		Black:            Band{Low: cfg.BlackLow, High: cfg.BlackHigh},
		White:            Band{Low: cfg.WhiteLow, High: cfg.WhiteHigh},
		OffsetIterations: cfg.OffsetIterations,
		TotalIterations:  cfg.TotalIterations,
		Policy:           Policy{Ratio: cfg.StepRatio, Min: 1, Max: cfg.MaxStep},
		GainSteps:        32,
		ExposureStep:     cfg.ExposureStep,
		MinExposure:      1000,
		MaxExposure:      0xffff,
	}
}

type Controller struct {
	opts Options
}

func NewController(opts Options) *Controller {
	if opts.GainSteps <= 0 {
		opts.GainSteps = 32
	}
	return &Controller{opts: opts}
}

// GainFactor is the amplification of a gain code
func (c *Controller) GainFactor(code int) float32 {
	return 1 + float32(code)/float32(c.opts.GainSteps)
}

// GainCode is the code closest to the amplification factor
func (c *Controller) GainCode(factor float32) int {
	return clamp(int((factor-1)*float32(c.opts.GainSteps)+0.5), 0, MaxGain)
}

// Coarse estimates the gain of every channel from one dark and one
// white line
func (c *Controller) Coarse(src Sampler, st *State) error {
	black, err := src.Sample(st, false)
	if err != nil {
		return err
	}
	white, err := src.Sample(st, true)
	if err != nil {
		return err
	}
	target := c.opts.White.Mid()
	for i := range st.Channels {
		ch := &st.Channels[i]
		ch.Black = black[i]
		ch.White = white[i]
		signal := white[i] - ch.Black
		if signal <= 0 {
			ch.Gain = MaxGain
			continue
		}
		factor := float32(target-ch.Black) / float32(signal) * c.GainFactor(ch.Gain)
		ch.Gain = c.GainCode(factor)
	}
	log.Debug("Coarse gain estimate: %s", st)
	return nil
}

// Offset moves the offsets until the dark level of every channel is
// inside the black band, at most OffsetIterations times
func (c *Controller) Offset(src Sampler, st *State) error {
	best := st.Clone()
	bestScore := -1
	converged := false
	for iter := 0; iter < c.opts.OffsetIterations && st.Iterations() < c.opts.TotalIterations; iter++ {
		black, err := src.Sample(st, false)
		if err != nil {
			return err
		}
		st.OffsetIterations++
		score := 0
		deltas := make([]int, len(st.Channels))
		for i := range st.Channels {
			ch := &st.Channels[i]
			ch.Black = black[i]
			d := c.opts.Black.Distance(black[i])
			score += abs(d)
			deltas[i] = -c.opts.Policy.Step(d)
		}
		if bestScore < 0 || score < bestScore {
			best, bestScore = st.Clone(), score
		}
		if score == 0 {
			converged = true
			break
		}
		for i := range st.Channels {
			st.Channels[i].Offset = clamp(st.Channels[i].Offset+deltas[i], 0, MaxOffset)
		}
		st.LastDeltas = deltas
		log.Debug("Offset iteration %d: black=%v deltas=%v", st.OffsetIterations, black, deltas)
	}
	if !converged {
		c.keepBest(st, best, "offset")
		for i := range st.Channels {
			st.Channels[i].Offset = best.Channels[i].Offset
			st.Channels[i].Black = best.Channels[i].Black
		}
	}
	return nil
}

// Gain moves the gains, and for CIS sensors the exposures, until the
// white level of every channel is inside the white band. It stops when
// the total iteration budget is spent.
func (c *Controller) Gain(src Sampler, st *State) error {
	best := st.Clone()
	bestScore := -1
	converged := false
	for st.Iterations() < c.opts.TotalIterations {
		white, err := src.Sample(st, true)
		if err != nil {
			return err
		}
		st.GainIterations++
		score := 0
		deltas := make([]int, len(st.Channels))
		for i := range st.Channels {
			st.Channels[i].White = white[i]
			d := c.opts.White.Distance(white[i])
			score += abs(d)
			deltas[i] = -c.opts.Policy.Step(d)
		}
		if bestScore < 0 || score < bestScore {
			best, bestScore = st.Clone(), score
		}
		if score == 0 {
			converged = true
			break
		}
		for i := range st.Channels {
			c.adjust(&st.Channels[i], deltas[i])
		}
		st.LastDeltas = deltas
		log.Debug("Gain iteration %d: white=%v deltas=%v", st.GainIterations, white, deltas)
	}
	if !converged {
		c.keepBest(st, best, "gain")
		for i := range st.Channels {
			st.Channels[i].Gain = best.Channels[i].Gain
			st.Channels[i].Exposure = best.Channels[i].Exposure
			st.Channels[i].White = best.Channels[i].White
		}
		return nil
	}
	st.Converged = !st.Degraded
	return nil
}

// adjust applies a white level correction. Once the gain is pinned at a
// limit a CIS sensor moves its exposure instead.
func (c *Controller) adjust(ch *Channel, delta int) {
	gain := ch.Gain + delta
	if gain >= 0 && gain <= MaxGain || !c.opts.CIS {
		ch.Gain = clamp(gain, 0, MaxGain)
		return
	}
	if delta > 0 && ch.Gain < MaxGain || delta < 0 && ch.Gain > 0 {
		ch.Gain = clamp(gain, 0, MaxGain)
		return
	}
	ch.Exposure = clamp(ch.Exposure+delta*c.opts.ExposureStep, c.opts.MinExposure, c.opts.MaxExposure)
}

func (c *Controller) keepBest(st, best *State, phase string) {
	st.Degraded = true
	st.Converged = false
	log.Warning("AFE %s calibration did not converge after %d iterations, keeping best values: %s",
		phase, st.Iterations(), best)
}

// Run executes the coarse, offset and gain phases in order
func (c *Controller) Run(src Sampler, st *State) error {
	if err := c.Coarse(src, st); err != nil {
		return err
	}
	if err := c.Offset(src, st); err != nil {
		return err
	}
	return c.Gain(src, st)
}
