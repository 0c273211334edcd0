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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetPath(filepath.Join(t.TempDir(), "absent"))

	require.NoError(t, cfg.Load())
	assert.Equal(t, DefaultModel, cfg.Device.Model)
	assert.Equal(t, DefaultParkAttempts, cfg.Poll.Park.Attempts)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	data := []byte(`
device:
  model: hp-scanjet-2400
  transport: sim
poll:
  load:
    attempts: 10
    interval: 50ms
calibration:
  white_low: 200
  white_high: 240
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg := NewDefaultConfig()
	cfg.SetPath(path)
	require.NoError(t, cfg.Load())

	assert.Equal(t, "hp-scanjet-2400", cfg.Device.Model)
	assert.Equal(t, TransportSim, cfg.Device.Transport)
	assert.Equal(t, 10, cfg.Poll.Load.Attempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Poll.Load.Interval)
	assert.Equal(t, 500*time.Millisecond, cfg.Poll.Load.Timeout())
	assert.Equal(t, DefaultParkAttempts, cfg.Poll.Park.Attempts)
	assert.Equal(t, 200, cfg.Calibration.WhiteLow)
	assert.Equal(t, DefaultBlackHigh, cfg.Calibration.BlackHigh)
	assert.Equal(t, DefaultApiPort, cfg.Api.Port)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
}

func TestLoadBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("device: [unterminated"), 0644))

	cfg := NewDefaultConfig()
	cfg.SetPath(path)
	err := cfg.Load()
	var parseErr ErrConfigParse
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, path, parseErr.Path)
}

func TestPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config")
	cfg := NewDefaultConfig()
	cfg.SetPath(path)
	cfg.Device.Model = "visioneer-strobe-xp100"

	require.NoError(t, cfg.Persist(false))
	assert.ErrorAs(t, cfg.Persist(false), &ErrConfigFileExists{})
	require.NoError(t, cfg.Persist(true))

	loaded := NewDefaultConfig()
	loaded.SetPath(path)
	require.NoError(t, loaded.Load())
	assert.Equal(t, "visioneer-strobe-xp100", loaded.Device.Model)
	assert.Equal(t, DefaultEjectInterval, loaded.Poll.Eject.Interval)
}
