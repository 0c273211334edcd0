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

package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-scan/pkg/config"
)

type countingSleeper struct {
	calls int
	total time.Duration
}

func (s *countingSleeper) Sleep(d time.Duration) {
	s.calls++
	s.total += d
}

func TestPollExhausts(t *testing.T) {
	s := &countingSleeper{}
	p := FromConfig("load", config.Poll{Attempts: 300, Interval: 200 * time.Millisecond}, s)

	polls := 0
	n, err := p.Poll(func() (bool, error) {
		polls++
		return false, nil
	})

	var exhausted ErrExhausted
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 300, n)
	assert.Equal(t, 300, polls)
	assert.Equal(t, 299, s.calls)
	assert.Equal(t, 60*time.Second, exhausted.Timeout)
	assert.Equal(t, "load", exhausted.Name)
}

func TestPollSucceeds(t *testing.T) {
	s := &countingSleeper{}
	p := Policy{MaxAttempts: 10, Interval: time.Millisecond, Sleeper: s}

	polls := 0
	n, err := p.Poll(func() (bool, error) {
		polls++
		return polls == 4, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 3, s.calls)
}

func TestPollStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	p := Policy{MaxAttempts: 10, Sleeper: &countingSleeper{}}
	n, err := p.Poll(func() (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
}
