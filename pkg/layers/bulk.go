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
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// BulkHeaderLayerNum identifies the layer
	BulkHeaderLayerNum = 2001
	// BulkHeaderSize is the size of the header announcing every bulk transfer
	BulkHeaderSize = 8
	// BulkValueBuffer is echoed in the third header byte
	BulkValueBuffer = 0x82
	// BulkMaxSize is the largest transfer a single header may announce
	BulkMaxSize = 0xeff0
)

type BulkDirection uint8

const (
	BulkIn  BulkDirection = 0x00
	BulkOut BulkDirection = 0x01
)

func (d BulkDirection) String() string {
	if d == BulkIn {
		return "in"
	}
	return "out"
}

type BulkTarget uint8

const (
	BulkTargetRAM      BulkTarget = 0x00
	BulkTargetRegister BulkTarget = 0x11
)

// BulkHeaderLayer is the 8 byte header sent over the control pipe ahead
// of every bulk transfer. The length is little-endian.
type BulkHeaderLayer struct {
	layers.BaseLayer
	Direction BulkDirection
	Target    BulkTarget
	Length    uint32
}

var BulkHeaderLayerType = gopacket.RegisterLayerType(BulkHeaderLayerNum,
	gopacket.LayerTypeMetadata{Name: "BulkHeaderLayerType", Decoder: gopacket.DecodeFunc(DecodeBulkHeaderLayer)})

func (h *BulkHeaderLayer) LayerType() gopacket.LayerType {
	return BulkHeaderLayerType
}

// Serialize writes the header into the first BulkHeaderSize bytes of buf
func (h *BulkHeaderLayer) Serialize(buf []byte) {
	buf[0] = byte(h.Direction)
	buf[1] = byte(h.Target)
	buf[2] = BulkValueBuffer
	buf[3] = 0
	binary.LittleEndian.PutUint32(buf[4:8], h.Length)
}

// SerializeTo prepends the header. With FixLengths set the length is taken
// from the payload already in the buffer.
func (h *BulkHeaderLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if opts.FixLengths {
		h.Length = uint32(len(b.Bytes()))
	}
	if h.Length > BulkMaxSize {
		return fmt.Errorf("bulk transfer of %d bytes exceeds %d", h.Length, BulkMaxSize)
	}
	bytes, err := b.PrependBytes(BulkHeaderSize)
	if err != nil {
		return err
	}
	h.Serialize(bytes)
	return nil
}

func (h *BulkHeaderLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < BulkHeaderSize {
		df.SetTruncated()
		return fmt.Errorf("bulk header too short: %d bytes", len(data))
	}
	if data[2] != BulkValueBuffer {
		return fmt.Errorf("wrong bulk header marker 0x%02x", data[2])
	}
	h.Direction = BulkDirection(data[0])
	h.Target = BulkTarget(data[1])
	h.Length = binary.LittleEndian.Uint32(data[4:8])
	h.BaseLayer = layers.BaseLayer{
		Contents: data[:BulkHeaderSize],
		Payload:  data[BulkHeaderSize:],
	}
	return nil
}

func (h *BulkHeaderLayer) CanDecode() gopacket.LayerClass {
	return BulkHeaderLayerType
}

func (h *BulkHeaderLayer) NextLayerType() gopacket.LayerType {
	if h.Direction == BulkOut && h.Target == BulkTargetRegister {
		return RegPairsLayerType
	}
	return gopacket.LayerTypePayload
}

func DecodeBulkHeaderLayer(data []byte, p gopacket.PacketBuilder) error {
	h := &BulkHeaderLayer{}
	if err := h.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(h)
	return p.NextDecoder(h.NextLayerType())
}
