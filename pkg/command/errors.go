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

package command

import (
	"fmt"
)

// ErrApi is an error answered by the API server
type ErrApi struct {
	Code    int
	Kind    string
	Message string
}

func (e ErrApi) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d (%s): %s", e.Code, e.Kind, e.Message)
}

type ErrUnknownTransport struct {
	Transport string
}

func (e ErrUnknownTransport) Error() string {
	return fmt.Sprintf("unknown transport %q", e.Transport)
}
