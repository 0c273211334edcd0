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

// File is the in-memory register image. It is not safe for concurrent use.
type File struct {
	order  []Addr
	index  map[Addr]int
	values []byte
}

// NewFile declares the register set. The order of decl is the bulk
// transmission order and addresses must be unique.
func NewFile(decl []Reg) (*File, error) {
	f := &File{
		order:  make([]Addr, 0, len(decl)),
		index:  make(map[Addr]int, len(decl)),
		values: make([]byte, 0, len(decl)),
	}
	for _, r := range decl {
		if _, ok := f.index[r.Addr]; ok {
			return nil, ErrDuplicateAddress{Addr: r.Addr}
		}
		f.index[r.Addr] = len(f.order)
		f.order = append(f.order, r.Addr)
		f.values = append(f.values, r.Value)
	}
	return f, nil
}

func (f *File) Len() int {
	return len(f.order)
}

func (f *File) Has(addr Addr) bool {
	_, ok := f.index[addr]
	return ok
}

// Addrs returns the declared addresses in transmission order
func (f *File) Addrs() []Addr {
	out := make([]Addr, len(f.order))
	copy(out, f.order)
	return out
}

func (f *File) Get(addr Addr) (byte, error) {
	i, ok := f.index[addr]
	if !ok {
		return 0, ErrUnknownAddress{Addr: addr}
	}
	return f.values[i], nil
}

func (f *File) Set(addr Addr, val byte) error {
	i, ok := f.index[addr]
	if !ok {
		return ErrUnknownAddress{Addr: addr}
	}
	f.values[i] = val
	return nil
}

// SetBits replaces the bits selected by mask
func (f *File) SetBits(addr Addr, mask, val byte) error {
	cur, err := f.Get(addr)
	if err != nil {
		return err
	}
	return f.Set(addr, (cur&^mask)|(val&mask))
}

func (f *File) Snapshot() Snapshot {
	s := make(Snapshot, len(f.order))
	for i, addr := range f.order {
		s[i] = Reg{Addr: addr, Value: f.values[i]}
	}
	return s
}

// Restore loads every value of s. Nothing is changed when s names an
// undeclared address.
func (f *File) Restore(s Snapshot) error {
	for _, r := range s {
		if !f.Has(r.Addr) {
			return ErrUnknownAddress{Addr: r.Addr}
		}
	}
	for _, r := range s {
		f.values[f.index[r.Addr]] = r.Value
	}
	return nil
}

// Diff returns the registers whose current value differs from s,
// in transmission order. Addresses missing from s count as changed.
func (f *File) Diff(s Snapshot) []Reg {
	prev := make(map[Addr]byte, len(s))
	for _, r := range s {
		prev[r.Addr] = r.Value
	}
	var out []Reg
	for i, addr := range f.order {
		v, ok := prev[addr]
		if !ok || v != f.values[i] {
			out = append(out, Reg{Addr: addr, Value: f.values[i]})
		}
	}
	return out
}

func (f *File) Clone() *File {
	c := &File{
		order:  make([]Addr, len(f.order)),
		index:  make(map[Addr]int, len(f.index)),
		values: make([]byte, len(f.values)),
	}
	copy(c.order, f.order)
	copy(c.values, f.values)
	for k, v := range f.index {
		c.index[k] = v
	}
	return c
}

func (f *File) GetField(fl Field) (uint32, error) {
	if err := fl.validate(); err != nil {
		return 0, err
	}
	if fl.Mask != 0 {
		v, err := f.Get(fl.Addr)
		if err != nil {
			return 0, err
		}
		return uint32(v&fl.Mask) >> fl.shift(), nil
	}
	var out uint32
	for i := 0; i < fl.Width; i++ {
		v, err := f.Get(fl.Addr + Addr(i))
		if err != nil {
			return 0, err
		}
		out = out<<8 | uint32(v)
	}
	return out, nil
}

// SetField stores val big-endian across the field registers, or into the
// masked bits for bit-fields.
func (f *File) SetField(fl Field, val uint32) error {
	if err := fl.validate(); err != nil {
		return err
	}
	if bits := fl.Bits(); bits < 32 && val >= 1<<uint(bits) {
		return ErrFieldOverflow{Field: fl.Name, Value: val, Bits: bits}
	}
	if fl.Mask != 0 {
		return f.SetBits(fl.Addr, fl.Mask, byte(val<<fl.shift()))
	}
	for i := 0; i < fl.Width; i++ {
		if !f.Has(fl.Addr + Addr(i)) {
			return ErrUnknownAddress{Addr: fl.Addr + Addr(i)}
		}
	}
	for i := fl.Width - 1; i >= 0; i-- {
		_ = f.Set(fl.Addr+Addr(i), byte(val))
		val >>= 8
	}
	return nil
}

// Apply writes a list of field values resolved through layout.
// It stops at the first failure.
func (f *File) Apply(layout Layout, vals []FieldValue) error {
	for _, fv := range vals {
		fl, err := layout.Field(fv.ID)
		if err != nil {
			return err
		}
		if err := f.SetField(fl, fv.Value); err != nil {
			return err
		}
	}
	return nil
}
