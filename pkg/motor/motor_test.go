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

package motor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-scan/pkg/capability"
)

func TestGenerateShape(t *testing.T) {
	for _, steps := range []int{1, 2, 16, 64, 200, 256} {
		for _, exp := range []float32{0.5, 1, 2.5} {
			for _, delays := range [][2]int{{4000, 1000}, {3000, 3000}, {70000, 100}} {
				p, err := Generate(Params{Steps: steps, StartDelay: delays[0], EndDelay: delays[1], Exponent: exp, Length: 256})
				require.NoError(t, err)
				require.Len(t, p.Table, 256)
				assert.LessOrEqual(t, len(p.Table), MaxProfileLength)

				for i := 1; i < len(p.Table); i++ {
					require.LessOrEqual(t, p.Table[i], p.Table[i-1], "steps=%d exp=%g i=%d", steps, exp, i)
				}
				for _, v := range p.Table {
					require.GreaterOrEqual(t, int(v), MinDelay)
				}

				seq := p.Sequence(10)
				peak := steps + 10
				for i := 1; i < peak; i++ {
					require.LessOrEqual(t, seq[i], seq[i-1])
				}
				for i := peak; i < len(seq); i++ {
					require.GreaterOrEqual(t, seq[i], seq[i-1])
				}
			}
		}
	}
}

func TestGenerateEndpoints(t *testing.T) {
	p, err := Generate(Params{Steps: 4, StartDelay: 4000, EndDelay: 1000, Exponent: 1})
	require.NoError(t, err)
	assert.Equal(t, []uint16{4000, 3250, 2500, 1750}, p.Table)
	assert.Equal(t, uint16(1750), p.Last())
	assert.Equal(t, uint32(11500), p.Sum())
	assert.Equal(t, []byte{0xa0, 0x0f, 0xb2, 0x0c, 0xc4, 0x09, 0xd6, 0x06}, p.Bytes())
	assert.Equal(t, []uint16{4000, 3250, 2500, 1750, 1750, 1750}, p.Padded(6))
}

func TestGenerateClipsToHardwareRange(t *testing.T) {
	p, err := Generate(Params{Steps: 3, StartDelay: 100000, EndDelay: 10, Exponent: 1, Length: 5})
	require.NoError(t, err)
	assert.Equal(t, uint16(MaxDelay), p.Table[0])
	assert.Equal(t, uint16(MinDelay), p.Table[4])
}

func TestGenerateInvalid(t *testing.T) {
	cases := map[string]Params{
		"no steps":       {Steps: 0, StartDelay: 4000, EndDelay: 1000, Exponent: 1},
		"too long":       {Steps: 10, StartDelay: 4000, EndDelay: 1000, Exponent: 1, Length: 257},
		"steps > length": {Steps: 20, StartDelay: 4000, EndDelay: 1000, Exponent: 1, Length: 10},
		"bad exponent":   {Steps: 10, StartDelay: 4000, EndDelay: 1000, Exponent: 0},
		"decelerating":   {Steps: 10, StartDelay: 1000, EndDelay: 4000, Exponent: 1},
		"zero end delay": {Steps: 10, StartDelay: 1000, EndDelay: 0, Exponent: 1},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Generate(params)
			assert.ErrorAs(t, err, &ErrInvalidMotorProfile{})
		})
	}
}

func TestRemainder(t *testing.T) {
	p, err := Generate(Params{Steps: 4, StartDelay: 4000, EndDelay: 1000, Exponent: 1})
	require.NoError(t, err)

	z1, z2, err := Remainder(p, 3000, 10, 2, false)
	require.NoError(t, err)
	assert.Equal(t, uint32((11500+2*1750)%3000), z1)
	assert.Equal(t, uint32((11500+10*1750)%3000), z2)

	_, z2, err = Remainder(p, 3000, 10, 2, true)
	require.NoError(t, err)
	assert.Equal(t, uint32((11500+1750)%3000), z2)

	_, _, err = Remainder(p, 0, 10, 2, false)
	assert.ErrorAs(t, err, &ErrInvalidMotorProfile{})
}

func TestRemainderFitsRegisters(t *testing.T) {
	for _, exposure := range []uint32{1, 997, 11000, 65535, 1<<RemainderBits - 1} {
		for _, steps := range []int{1, 32, 255} {
			p, err := Generate(Params{Steps: steps, StartDelay: 65535, EndDelay: 300, Exponent: 2})
			require.NoError(t, err)
			for _, move := range []uint32{0, 1, 5000, 1 << 24} {
				z1, z2, err := Remainder(p, exposure, move, move/2, move%2 == 1)
				require.NoError(t, err)
				assert.Less(t, z1, uint32(1<<RemainderBits))
				assert.Less(t, z2, uint32(1<<RemainderBits))
				assert.Less(t, z1, exposure)
				assert.Less(t, z2, exposure)
			}
		}
	}
}

func TestParamsFromCapabilities(t *testing.T) {
	row := capability.MotorRow{Steps: 48, StartDelay: 3000, EndDelay: 1400, Exponent: 0.8}
	p, err := Generate(ParamsFromRow(row, 64))
	require.NoError(t, err)
	assert.Len(t, p.Table, 64)
	assert.Equal(t, uint16(3000), p.Table[0])
	assert.Equal(t, uint16(1400), p.Table[63])

	fast, err := Generate(FastParams(capability.Motor{FastSteps: 64, FastStartDelay: 3000, FastEndDelay: 600, FastExponent: 1.5}))
	require.NoError(t, err)
	assert.Len(t, fast.Table, 64)
}
