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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDecl() []Reg {
	return []Reg{
		{Addr: 0x01, Value: 0x20},
		{Addr: 0x04, Value: 0x00},
		{Addr: 0x05, Value: 0x00},
		{Addr: 0x06, Value: 0x00},
		{Addr: 0x02, Value: 0x71},
	}
}

func newTestFile(t *testing.T) *File {
	f, err := NewFile(testDecl())
	require.NoError(t, err)
	return f
}

func TestRoundTrip(t *testing.T) {
	f := newTestFile(t)
	for _, addr := range f.Addrs() {
		for _, v := range []byte{0x00, 0x5a, 0xff} {
			require.NoError(t, f.Set(addr, v))
			got, err := f.Get(addr)
			require.NoError(t, err)
			assert.Equal(t, v, got, "register %s", addr)
		}
	}
}

func TestUndeclaredAddress(t *testing.T) {
	f := newTestFile(t)

	_, err := f.Get(0x03)
	assert.ErrorIs(t, err, ErrUnknownAddress{Addr: 0x03})
	assert.ErrorIs(t, f.Set(0x99, 1), ErrUnknownAddress{Addr: 0x99})
	assert.False(t, f.Has(0x03))
}

func TestDuplicateDeclaration(t *testing.T) {
	_, err := NewFile([]Reg{{Addr: 0x10}, {Addr: 0x11}, {Addr: 0x10}})
	assert.ErrorIs(t, err, ErrDuplicateAddress{Addr: 0x10})
}

func TestSnapshotKeepsDeclarationOrder(t *testing.T) {
	f := newTestFile(t)
	s := f.Snapshot()
	require.Len(t, s, 5)
	assert.Equal(t, []Addr{0x01, 0x04, 0x05, 0x06, 0x02}, f.Addrs())
	for i, r := range testDecl() {
		assert.Equal(t, r, s[i])
	}
}

func TestRestore(t *testing.T) {
	f := newTestFile(t)
	saved := f.Snapshot()

	require.NoError(t, f.Set(0x01, 0xee))
	require.NoError(t, f.Set(0x02, 0xdd))
	assert.Equal(t, []Reg{{Addr: 0x01, Value: 0xee}, {Addr: 0x02, Value: 0xdd}}, f.Diff(saved))

	require.NoError(t, f.Restore(saved))
	assert.Empty(t, f.Diff(saved))

	bad := Snapshot{{Addr: 0x01, Value: 0x11}, {Addr: 0x42, Value: 0x01}}
	assert.ErrorIs(t, f.Restore(bad), ErrUnknownAddress{Addr: 0x42})
	v, _ := f.Get(0x01)
	assert.Equal(t, byte(0x20), v, "failed restore must not change values")
}

func TestCloneIsIndependent(t *testing.T) {
	f := newTestFile(t)
	c := f.Clone()
	require.NoError(t, c.Set(0x04, 0x77))
	v, _ := f.Get(0x04)
	assert.Equal(t, byte(0), v)
}

func TestMultiByteField(t *testing.T) {
	f := newTestFile(t)
	fl := Field{Name: "LINCNT", Addr: 0x04, Width: 3, Size: 20}

	require.NoError(t, f.SetField(fl, 0x0abcde))
	for addr, want := range map[Addr]byte{0x04: 0x0a, 0x05: 0xbc, 0x06: 0xde} {
		got, _ := f.Get(addr)
		assert.Equal(t, want, got)
	}
	v, err := f.GetField(fl)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0abcde), v)

	err = f.SetField(fl, 1<<20)
	var overflow ErrFieldOverflow
	require.ErrorAs(t, err, &overflow)
	assert.Equal(t, 20, overflow.Bits)
	assert.Equal(t, uint32(1<<20-1), fl.Max())
}

func TestBitField(t *testing.T) {
	f := newTestFile(t)
	cksel := Field{Name: "CKSEL", Addr: 0x02, Mask: 0x30}

	require.NoError(t, f.SetField(cksel, 2))
	v, _ := f.Get(0x02)
	assert.Equal(t, byte(0x61), v, "other bits are preserved")
	got, err := f.GetField(cksel)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got)
	assert.Error(t, f.SetField(cksel, 4))

	assert.Error(t, f.SetField(Field{Name: "BROKEN", Addr: 0x02, Mask: 0x05}, 1))
}

func TestLayoutApply(t *testing.T) {
	f := newTestFile(t)
	layout := Layout{
		FieldLineCount: {Addr: 0x04, Width: 3},
		FieldLamp:      {Addr: 0x01, Mask: 0x80},
	}
	require.NoError(t, layout.Validate(f))

	err := f.Apply(layout, []FieldValue{
		{ID: FieldLineCount, Value: 300},
		{ID: FieldLamp, Value: 1},
	})
	require.NoError(t, err)
	lamp, _ := f.Get(0x01)
	assert.Equal(t, byte(0xa0), lamp)

	err = f.Apply(layout, []FieldValue{{ID: FieldGainRed, Value: 3}})
	assert.ErrorIs(t, err, ErrUnknownField{ID: FieldGainRed})

	broken := Layout{FieldDPISet: {Addr: 0x06, Width: 2}}
	assert.ErrorIs(t, broken.Validate(f), ErrUnknownAddress{Addr: 0x07})
}

func TestParseAddr(t *testing.T) {
	for in, want := range map[string]Addr{"0x6d": 0x6d, "16": 16, " 0x0100 ": 0x100} {
		got, err := ParseAddr(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseAddr("0x1ffff")
	assert.Error(t, err)
}
