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

package regs

import "fmt"

type ErrUnknownAddress struct {
	Addr Addr
}

func (e ErrUnknownAddress) Error() string {
	return fmt.Sprintf("register %s is not declared", e.Addr)
}

type ErrDuplicateAddress struct {
	Addr Addr
}

func (e ErrDuplicateAddress) Error() string {
	return fmt.Sprintf("register %s is declared twice", e.Addr)
}

type ErrUnknownField struct {
	ID FieldID
}

func (e ErrUnknownField) Error() string {
	return fmt.Sprintf("field %s is not in the layout", e.ID)
}

type ErrFieldOverflow struct {
	Field string
	Value uint32
	Bits  int
}

func (e ErrFieldOverflow) Error() string {
	return fmt.Sprintf("value %d does not fit %d bit field %s", e.Value, e.Bits, e.Field)
}

type ErrBadField struct {
	Field string
	What  string
}

func (e ErrBadField) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.What)
}
