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

package layers

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"jinr.ru/greenlab/go-scan/pkg/regs"
)

const (
	// RegPairsLayerNum identifies the layer
	RegPairsLayerNum = 2002
	// MaxRegAddr is the largest address the pair encoding carries
	MaxRegAddr = 0xff
)

// RegPairsLayer is the payload of a register bulk write:
// a sequence of (address, value) byte pairs
type RegPairsLayer struct {
	layers.BaseLayer
	Regs []regs.Reg
}

var RegPairsLayerType = gopacket.RegisterLayerType(RegPairsLayerNum,
	gopacket.LayerTypeMetadata{Name: "RegPairsLayerType", Decoder: gopacket.DecodeFunc(DecodeRegPairsLayer)})

func (l *RegPairsLayer) LayerType() gopacket.LayerType {
	return RegPairsLayerType
}

func (l *RegPairsLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(2 * len(l.Regs))
	if err != nil {
		return err
	}
	for i, r := range l.Regs {
		if r.Addr > MaxRegAddr {
			return fmt.Errorf("register %s does not fit a pair write", r.Addr)
		}
		bytes[2*i] = byte(r.Addr)
		bytes[2*i+1] = r.Value
	}
	return nil
}

func (l *RegPairsLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data)%2 != 0 {
		df.SetTruncated()
		return fmt.Errorf("odd register pair payload: %d bytes", len(data))
	}
	l.Regs = make([]regs.Reg, 0, len(data)/2)
	for i := 0; i < len(data); i += 2 {
		l.Regs = append(l.Regs, regs.Reg{Addr: regs.Addr(data[i]), Value: data[i+1]})
	}
	l.BaseLayer = layers.BaseLayer{Contents: data, Payload: []byte{}}
	return nil
}

func (l *RegPairsLayer) CanDecode() gopacket.LayerClass {
	return RegPairsLayerType
}

func (l *RegPairsLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func DecodeRegPairsLayer(data []byte, p gopacket.PacketBuilder) error {
	l := &RegPairsLayer{}
	if err := l.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(l)
	return nil
}

// SerializeRegisterWrite builds the header and pair payload of a register
// bulk write
func SerializeRegisterWrite(set []regs.Reg) (header []byte, payload []byte, err error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	err = gopacket.SerializeLayers(buf, opts,
		&BulkHeaderLayer{Direction: BulkOut, Target: BulkTargetRegister},
		&RegPairsLayer{Regs: set},
	)
	if err != nil {
		return nil, nil, err
	}
	frame := buf.Bytes()
	return frame[:BulkHeaderSize], frame[BulkHeaderSize:], nil
}

// SerializeBulkHeader builds the header for a data transfer of length bytes
func SerializeBulkHeader(dir BulkDirection, length int) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	h := &BulkHeaderLayer{Direction: dir, Target: BulkTargetRAM, Length: uint32(length)}
	if err := h.SerializeTo(buf, gopacket.SerializeOptions{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRegisterWrite parses a header+pairs frame back into registers
func DecodeRegisterWrite(frame []byte) ([]regs.Reg, error) {
	packet := gopacket.NewPacket(frame, BulkHeaderLayerType, gopacket.Default)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}
	h, ok := packet.Layer(BulkHeaderLayerType).(*BulkHeaderLayer)
	if !ok {
		return nil, fmt.Errorf("no bulk header in frame")
	}
	pairs, ok := packet.Layer(RegPairsLayerType).(*RegPairsLayer)
	if !ok {
		return nil, fmt.Errorf("frame is not a register write")
	}
	if int(h.Length) != len(pairs.Regs)*2 {
		return nil, fmt.Errorf("header announces %d bytes, got %d", h.Length, len(pairs.Regs)*2)
	}
	return pairs.Regs, nil
}
