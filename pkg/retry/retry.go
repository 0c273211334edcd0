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

// Package retry bounds hardware polling loops.
//
// A Policy is a number of polls separated by a fixed interval. Sleeping is
// done through an injectable Sleeper so tests run without real delays.
package retry

import (
	"fmt"
	"time"

	"jinr.ru/greenlab/go-scan/pkg/config"
)

type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts a function to Sleeper
type SleeperFunc func(d time.Duration)

func (f SleeperFunc) Sleep(d time.Duration) {
	f(d)
}

// RealSleeper uses time.Sleep
var RealSleeper Sleeper = SleeperFunc(time.Sleep)

type Policy struct {
	Name        string
	MaxAttempts int
	Interval    time.Duration
	Sleeper     Sleeper
}

// FromConfig builds a policy from a configured poll
func FromConfig(name string, p config.Poll, s Sleeper) Policy {
	return Policy{Name: name, MaxAttempts: p.Attempts, Interval: p.Interval, Sleeper: s}
}

// Timeout is the longest wall time the policy waits
func (p Policy) Timeout() time.Duration {
	return time.Duration(p.MaxAttempts) * p.Interval
}

// ErrExhausted is returned when the condition never held
type ErrExhausted struct {
	Name     string
	Attempts int
	Timeout  time.Duration
}

func (e ErrExhausted) Error() string {
	return fmt.Sprintf("%s: condition not met after %d polls (%s)", e.Name, e.Attempts, e.Timeout)
}

// Poll evaluates cond up to MaxAttempts times, sleeping Interval between
// attempts. It returns the number of attempts made. An error from cond
// ends the loop immediately.
func (p Policy) Poll(cond func() (bool, error)) (int, error) {
	sleeper := p.Sleeper
	if sleeper == nil {
		sleeper = RealSleeper
	}
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		done, err := cond()
		if err != nil {
			return attempt, err
		}
		if done {
			return attempt, nil
		}
		if attempt < p.MaxAttempts {
			sleeper.Sleep(p.Interval)
		}
	}
	return p.MaxAttempts, ErrExhausted{Name: p.Name, Attempts: p.MaxAttempts, Timeout: p.Timeout()}
}
