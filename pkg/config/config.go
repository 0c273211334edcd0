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

package config

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

type DeviceConfig struct {
	Model     string `yaml:"model"`
	Transport string `yaml:"transport"`
	VendorID  uint16 `yaml:"vendor_id"`
	ProductID uint16 `yaml:"product_id"`
}

type ApiConfig struct {
	Address   string `yaml:"address"`
	Port      int    `yaml:"port"`
	Advertise bool   `yaml:"advertise"`
}

// Poll describes a bounded wait as a number of polls of fixed interval
type Poll struct {
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
}

// Timeout is the total wait the poll allows
func (p Poll) Timeout() time.Duration {
	return time.Duration(p.Attempts) * p.Interval
}

type PollConfig struct {
	Park   Poll `yaml:"park"`
	Load   Poll `yaml:"load"`
	Eject  Poll `yaml:"eject"`
	Motor  Poll `yaml:"motor"`
	Sensor Poll `yaml:"sensor"`
}

type CalibrationConfig struct {
	BlackLow         int           `yaml:"black_low"`
	BlackHigh        int           `yaml:"black_high"`
	WhiteLow         int           `yaml:"white_low"`
	WhiteHigh        int           `yaml:"white_high"`
	OffsetIterations int           `yaml:"offset_iterations"`
	TotalIterations  int           `yaml:"total_iterations"`
	StepRatio        float32       `yaml:"step_ratio"`
	MaxStep          int           `yaml:"max_step"`
	ExposureStep     int           `yaml:"exposure_step"`
	ShadingLines     int           `yaml:"shading_lines"`
	CacheExpiration  time.Duration `yaml:"cache_expiration"`
}

type Config struct {
	Device       *DeviceConfig      `yaml:"device,omitempty"`
	Api          *ApiConfig         `yaml:"api,omitempty"`
	Poll         *PollConfig        `yaml:"poll,omitempty"`
	Calibration  *CalibrationConfig `yaml:"calibration,omitempty"`
	Capabilities string             `yaml:"capabilities,omitempty"`
	DBPath       string             `yaml:"db_path,omitempty"`
	LogLevel     string             `yaml:"log_level,omitempty"`
	filepath     string
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(c.filepath, data, 0644)
}

func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Load reads the config file on top of the current values.
// A missing file is not an error, the defaults stay in place.
func (c *Config) Load() error {
	data, err := ioutil.ReadFile(c.filepath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return ErrConfigParse{Path: c.filepath, Err: err}
	}
	c.ensureDefaults()
	return nil
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

// ensureDefaults fills sections and zero fields that the file left out
func (c *Config) ensureDefaults() {
	def := NewDefaultConfig()
	if c.Device == nil {
		c.Device = def.Device
	}
	if c.Device.Model == "" {
		c.Device.Model = def.Device.Model
	}
	if c.Device.Transport == "" {
		c.Device.Transport = def.Device.Transport
	}
	if c.Api == nil {
		c.Api = def.Api
	}
	if c.Api.Address == "" {
		c.Api.Address = def.Api.Address
	}
	if c.Api.Port == 0 {
		c.Api.Port = def.Api.Port
	}
	if c.Poll == nil {
		c.Poll = def.Poll
	}
	fillPoll(&c.Poll.Park, def.Poll.Park)
	fillPoll(&c.Poll.Load, def.Poll.Load)
	fillPoll(&c.Poll.Eject, def.Poll.Eject)
	fillPoll(&c.Poll.Motor, def.Poll.Motor)
	fillPoll(&c.Poll.Sensor, def.Poll.Sensor)
	if c.Calibration == nil {
		c.Calibration = def.Calibration
	}
	cal, dcal := c.Calibration, def.Calibration
	if cal.BlackHigh == 0 {
		cal.BlackLow, cal.BlackHigh = dcal.BlackLow, dcal.BlackHigh
	}
	if cal.WhiteHigh == 0 {
		cal.WhiteLow, cal.WhiteHigh = dcal.WhiteLow, dcal.WhiteHigh
	}
	if cal.OffsetIterations == 0 {
		cal.OffsetIterations = dcal.OffsetIterations
	}
	if cal.TotalIterations == 0 {
		cal.TotalIterations = dcal.TotalIterations
	}
	if cal.StepRatio == 0 {
		cal.StepRatio = dcal.StepRatio
	}
	if cal.MaxStep == 0 {
		cal.MaxStep = dcal.MaxStep
	}
	if cal.ExposureStep == 0 {
		cal.ExposureStep = dcal.ExposureStep
	}
	if cal.ShadingLines == 0 {
		cal.ShadingLines = dcal.ShadingLines
	}
	if cal.CacheExpiration == 0 {
		cal.CacheExpiration = dcal.CacheExpiration
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

func fillPoll(p *Poll, def Poll) {
	if p.Attempts == 0 {
		p.Attempts = def.Attempts
	}
	if p.Interval == 0 {
		p.Interval = def.Interval
	}
}

func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	return filepath.Join(homeDir(), ConfigDir, DBFile)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return home
}

func NewDefaultConfig() *Config {
	return &Config{
		Device: &DeviceConfig{
			Model:     DefaultModel,
			Transport: DefaultTransport,
			VendorID:  DefaultVendorID,
			ProductID: DefaultProductID,
		},
		Api: &ApiConfig{
			Address: DefaultApiAddress,
			Port:    DefaultApiPort,
		},
		Poll: &PollConfig{
			Park:   Poll{Attempts: DefaultParkAttempts, Interval: DefaultParkInterval},
			Load:   Poll{Attempts: DefaultLoadAttempts, Interval: DefaultLoadInterval},
			Eject:  Poll{Attempts: DefaultEjectAttempts, Interval: DefaultEjectInterval},
			Motor:  Poll{Attempts: DefaultMotorAttempts, Interval: DefaultMotorInterval},
			Sensor: Poll{Attempts: DefaultSensorAttempts, Interval: DefaultSensorInterval},
		},
		Calibration: &CalibrationConfig{
			BlackLow:         DefaultBlackLow,
			BlackHigh:        DefaultBlackHigh,
			WhiteLow:         DefaultWhiteLow,
			WhiteHigh:        DefaultWhiteHigh,
			OffsetIterations: DefaultOffsetIterations,
			TotalIterations:  DefaultTotalIterations,
			StepRatio:        DefaultStepRatio,
			MaxStep:          DefaultMaxStep,
			ExposureStep:     DefaultExposureStep,
			ShadingLines:     DefaultShadingLines,
			CacheExpiration:  DefaultCacheExpiration,
		},
		DBPath:   DefaultDBPath(),
		LogLevel: DefaultLogLevel,
		filepath: DefaultConfigPath(),
	}
}
