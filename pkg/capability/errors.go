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

package capability

import "fmt"

// ErrNoCapabilityMatch means the requested combination is not supported.
// There is no nearest-neighbour fallback.
type ErrNoCapabilityMatch struct {
	Model string
	Table string
	ID    string
	DPI   int
	Color bool
}

func (e ErrNoCapabilityMatch) Error() string {
	if e.Table == "model" {
		return fmt.Sprintf("unknown scanner model %q", e.Model)
	}
	return fmt.Sprintf("no %s capability for model %s: %s", e.Table, e.Model, rowKey(e.ID, e.DPI, e.Color))
}

type ErrBadCatalog struct {
	What string
}

func (e ErrBadCatalog) Error() string {
	return fmt.Sprintf("capability catalog: %s", e.What)
}
