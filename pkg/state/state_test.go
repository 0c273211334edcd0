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

package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-scan/pkg/calibration"
	"jinr.ru/greenlab/go-scan/pkg/regs"
)

func newStore(t *testing.T, now *time.Time) *Store {
	s, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "state.db"), time.Hour)
	require.NoError(t, err)
	s.Now = func() time.Time { return *now }
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCalibrationKey(t *testing.T) {
	assert.Equal(t, "cal/600/color/3", CalibrationKey(600, true, 3))
	assert.Equal(t, "cal/75/gray/1", CalibrationKey(75, false, 1))
}

func TestCalibrationRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newStore(t, &now)

	st := calibration.NewState(3, 122, 14, 11000)
	st.Converged = true
	st.OffsetIterations = 5
	st.Shading = []uint16{1000, 0x4000}
	require.NoError(t, s.PutCalibration("canon-lide-35", 600, true, st))
	assert.True(t, st.Created.IsZero(), "the caller's state is not stamped")

	now = now.Add(30 * time.Minute)
	got, err := s.GetCalibration("canon-lide-35", 600, true, 3)
	require.NoError(t, err)
	assert.Equal(t, st.Channels, got.Channels)
	assert.Equal(t, st.Shading, got.Shading)
	assert.True(t, got.Converged)
	assert.Equal(t, 5, got.OffsetIterations)
	assert.True(t, got.Created.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestCalibrationMiss(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newStore(t, &now)

	_, err := s.GetCalibration("canon-lide-35", 600, true, 3)
	assert.ErrorIs(t, err, ErrNotFound{Model: "canon-lide-35", Key: "cal/600/color/3"})
	assert.True(t, IsMiss(err))

	require.NoError(t, s.PutCalibration("canon-lide-35", 600, true, calibration.NewState(3, 128, 0, 11000)))
	_, err = s.GetCalibration("canon-lide-35", 600, false, 3)
	assert.True(t, IsMiss(err))
	_, err = s.GetCalibration("canon-lide-35", 600, true, 1)
	assert.True(t, IsMiss(err))

	now = now.Add(61 * time.Minute)
	_, err = s.GetCalibration("canon-lide-35", 600, true, 3)
	var expired ErrExpired
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, time.Minute, expired.Age)
	assert.True(t, IsMiss(err))
}

func TestPurgeExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newStore(t, &now)

	require.NoError(t, s.PutCalibration("hp-scanjet-2400", 300, true, calibration.NewState(3, 128, 0, 8500)))
	now = now.Add(45 * time.Minute)
	require.NoError(t, s.PutCalibration("hp-scanjet-2400", 600, true, calibration.NewState(3, 128, 0, 8500)))
	require.NoError(t, s.PutRegisters("hp-scanjet-2400", regs.Snapshot{{Addr: 0x01, Value: 0x20}}))
	now = now.Add(30 * time.Minute)

	n, err := s.PurgeExpired("hp-scanjet-2400")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetCalibration("hp-scanjet-2400", 600, true, 3)
	assert.NoError(t, err)
	_, err = s.GetRegisters("hp-scanjet-2400")
	assert.NoError(t, err)

	n, err = s.PurgeExpired("unknown-model")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegisters(t *testing.T) {
	now := time.Now()
	s := newStore(t, &now)

	_, err := s.GetRegisters("canon-lide-35")
	assert.True(t, IsMiss(err))

	snap := regs.Snapshot{{Addr: 0x01, Value: 0x20}, {Addr: 0x2c, Value: 0x02}, {Addr: 0x2d, Value: 0x58}}
	require.NoError(t, s.PutRegisters("canon-lide-35", snap))
	got, err := s.GetRegisters("canon-lide-35")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}
