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
	"errors"
	"fmt"
	"time"

	"jinr.ru/greenlab/go-scan/pkg/capability"
	"jinr.ru/greenlab/go-scan/pkg/device"
	"jinr.ru/greenlab/go-scan/pkg/device/ifc"
	"jinr.ru/greenlab/go-scan/pkg/geometry"
	"jinr.ru/greenlab/go-scan/pkg/motor"
	"jinr.ru/greenlab/go-scan/pkg/regs"
)

// Kind classifies every error the engine returns
type Kind int

const (
	KindNone Kind = iota
	TransportError
	MotorTimeout
	SensorTimeout
	DocumentTimeout
	DeviceBusy
	NoCapabilityMatch
	InvalidGeometry
	InvalidMotorProfile
	NoDocument
	Jammed
	OutOfMemory
	Cancelled
	UnknownAddress
	Internal
)

var kindNames = map[Kind]string{
	KindNone:            "None",
	TransportError:      "TransportError",
	MotorTimeout:        "MotorTimeout",
	SensorTimeout:       "SensorTimeout",
	DocumentTimeout:     "DocumentTimeout",
	DeviceBusy:          "DeviceBusy",
	NoCapabilityMatch:   "NoCapabilityMatch",
	InvalidGeometry:     "InvalidGeometry",
	InvalidMotorProfile: "InvalidMotorProfile",
	NoDocument:          "NoDocument",
	Jammed:              "Jammed",
	OutOfMemory:         "OutOfMemory",
	Cancelled:           "Cancelled",
	UnknownAddress:      "UnknownAddress",
	Internal:            "Internal",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var (
	ErrNoDocument     = errors.New("no document in the feeder")
	ErrJammed         = errors.New("document jammed")
	ErrCancelled      = errors.New("operation cancelled")
	ErrNotInitialized = errors.New("engine is not initialized")
)

// ErrTimeout is a bounded poll that ran out
type ErrTimeout struct {
	Kind    Kind
	Op      string
	Polls   int
	Timeout time.Duration
}

func (e ErrTimeout) Error() string {
	return fmt.Sprintf("%s: %s after %d polls (%s)", e.Op, e.Kind, e.Polls, e.Timeout)
}

// Is makes a document that never showed up during load match ErrNoDocument
func (e ErrTimeout) Is(target error) bool {
	return target == ErrNoDocument && e.Kind == DocumentTimeout && e.Op == OpLoad
}

// ErrDeviceBusy is a motor still running after its bound
type ErrDeviceBusy struct {
	Op    string
	Polls int
}

func (e ErrDeviceBusy) Error() string {
	return fmt.Sprintf("%s: device busy after %d polls", e.Op, e.Polls)
}

// ErrWrongState is an operation not allowed in the current state
type ErrWrongState struct {
	Op    string
	State State
}

func (e ErrWrongState) Error() string {
	return fmt.Sprintf("%s is not allowed while %s", e.Op, e.State)
}

type ErrOutOfMemory struct {
	Need  int
	Limit int
}

func (e ErrOutOfMemory) Error() string {
	return fmt.Sprintf("scan buffers need %d bytes, limit is %d", e.Need, e.Limit)
}

// step counts a motor profile writes, an overflow there is a profile fault
var motorFields = map[string]bool{
	regs.FieldStepNo.String():  true,
	regs.FieldFwdStep.String(): true,
	regs.FieldFastNo.String():  true,
	regs.FieldZ1Mod.String():   true,
	regs.FieldZ2Mod.String():   true,
}

// Classify maps an error to its kind
func Classify(err error) Kind {
	var (
		timeout    ErrTimeout
		busy       ErrDeviceBusy
		wrongState ErrWrongState
		oom        ErrOutOfMemory
		noMatch    capability.ErrNoCapabilityMatch
		badGeom    geometry.ErrInvalidGeometry
		overflow   regs.ErrFieldOverflow
		badProfile motor.ErrInvalidMotorProfile
		noTable    device.ErrNoMotorTable
		unknown    regs.ErrUnknownAddress
		noField    regs.ErrUnknownField
		transport  ifc.ErrTransport
	)
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCancelled):
		return Cancelled
	case errors.As(err, &timeout):
		return timeout.Kind
	case errors.As(err, &busy), errors.As(err, &wrongState):
		return DeviceBusy
	case errors.Is(err, ErrNoDocument):
		return NoDocument
	case errors.Is(err, ErrJammed):
		return Jammed
	case errors.As(err, &oom):
		return OutOfMemory
	case errors.As(err, &noMatch):
		return NoCapabilityMatch
	case errors.As(err, &overflow):
		if motorFields[overflow.Field] {
			return InvalidMotorProfile
		}
		return InvalidGeometry
	case errors.As(err, &badGeom):
		return InvalidGeometry
	case errors.As(err, &badProfile), errors.As(err, &noTable):
		return InvalidMotorProfile
	case errors.As(err, &unknown), errors.As(err, &noField):
		return UnknownAddress
	case errors.As(err, &transport):
		return TransportError
	}
	return Internal
}

// Retryable reports errors the caller may retry unchanged
func Retryable(err error) bool {
	switch Classify(err) {
	case MotorTimeout, SensorTimeout, DocumentTimeout, NoDocument:
		return true
	}
	return false
}

// Fatal reports errors no retry can fix: broken transport or a request
// the hardware does not support
func Fatal(err error) bool {
	switch Classify(err) {
	case TransportError, NoCapabilityMatch, InvalidGeometry, InvalidMotorProfile, UnknownAddress, OutOfMemory, Internal:
		return true
	}
	return false
}
