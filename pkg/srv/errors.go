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

package srv

import (
	"fmt"
)

// ErrUnknownOperation is a request for an action the server does not know
type ErrUnknownOperation struct {
	What string
}

func (e ErrUnknownOperation) Error() string {
	return fmt.Sprintf("Unknown operation: %s", e.What)
}

// ErrBadRegister is a register address or value that does not parse
type ErrBadRegister struct {
	What string
	Err  error
}

func (e ErrBadRegister) Error() string {
	return fmt.Sprintf("Bad register %s: %s", e.What, e.Err)
}

func (e ErrBadRegister) Unwrap() error {
	return e.Err
}
