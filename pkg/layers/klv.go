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
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// KLVLayerNum identifies the layer
	KLVLayerNum = 2000
	// KeyLen is the length of the universal key in front of every KLV packet
	KeyLen = 16
	// MinPacketLen is the key, at least one length byte and at least one value byte
	MinPacketLen = KeyLen + 2
)

// KLVPacket is a single outer KLV packet
type KLVPacket struct {
	// Key is not interpreted
	Key [KeyLen]byte
	// Length is the declared length of Value
	Length uint64
	Value  []byte
}

// KLVLayer holds all complete KLV packets found in one buffer.
// KLV buffers have no common header, so Contents are the bytes consumed by
// complete packets and Payload is the tail that could not be decoded.
type KLVLayer struct {
	layers.BaseLayer
	Packets []*KLVPacket
}

var KLVLayerType = gopacket.RegisterLayerType(KLVLayerNum,
	gopacket.LayerTypeMetadata{Name: "KLVLayerType", Decoder: gopacket.DecodeFunc(DecodeKLVLayer)})

// LayerType returns the type of the KLV layer in the layer catalog
func (l *KLVLayer) LayerType() gopacket.LayerType {
	return KLVLayerType
}

// CanDecode returns the set of layer types this DecodingLayer can decode
func (l *KLVLayer) CanDecode() gopacket.LayerClass {
	return KLVLayerType
}

// NextLayerType is always zero since undecodable tail bytes are dropped
func (l *KLVLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

// NewKLVPacket builds a packet with the value encoded from local set entries
func NewKLVPacket(key [KeyLen]byte, entries ...LocalSetEntry) (*KLVPacket, error) {
	value, err := EncodeLocalSet(entries)
	if err != nil {
		return nil, err
	}
	return &KLVPacket{
		Key:    key,
		Length: uint64(len(value)),
		Value:  value,
	}, nil
}

// LocalSet decodes the packet value as a local set
func (p *KLVPacket) LocalSet() LocalSet {
	return DecodeLocalSet(p.Value)
}

// Serialize appends the packet using the shortest length form
func (p *KLVPacket) Serialize(buf []byte) []byte {
	buf = append(buf, p.Key[:]...)
	buf = append(buf, EncodeBERLength(uint64(len(p.Value)))...)
	return append(buf, p.Value...)
}

// SerializeTo serializes the KLV layer into bytes and writes the bytes to the SerializeBuffer
func (l *KLVLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	for _, packet := range l.Packets {
		encoded := packet.Serialize(nil)
		bytes, err := b.AppendBytes(len(encoded))
		if err != nil {
			return err
		}
		copy(bytes, encoded)
	}
	return nil
}

// DecodePacket decodes one packet starting at offset.
// It returns the offset right after the packet and false when there is no
// complete packet at offset.
func (l *KLVLayer) DecodePacket(offset int, data []byte) (int, bool) {
	if len(data)-offset < MinPacketLen {
		return offset, false
	}

	var key [KeyLen]byte
	copy(key[:], data[offset:offset+KeyLen])
	cursor := offset + KeyLen

	length, n, ok := DecodeBERLength(data[cursor:])
	if !ok {
		return offset, false
	}
	cursor += n

	// end of packet is current cursor + declared length
	if length > uint64(len(data)-cursor) {
		return offset, false
	}
	end := cursor + int(length)

	l.Packets = append(l.Packets, &KLVPacket{
		Key:    key,
		Length: length,
		Value:  data[cursor:end],
	})
	return end, true
}

// DecodeFromBytes decodes every complete KLV packet in data.
// Malformed input is never an error: decoding stops at the first packet that
// is not fully contained in data and the rest of the buffer is reported
// as truncated.
func (l *KLVLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	l.Packets = l.Packets[:0]

	offset := 0
	for {
		next, ok := l.DecodePacket(offset, data)
		if !ok {
			break
		}
		offset = next
	}

	l.BaseLayer = layers.BaseLayer{
		Contents: data[:offset],
		Payload:  data[offset:],
	}
	if offset < len(data) {
		df.SetTruncated()
	}
	return nil
}

// LocalSets decodes the value of every packet in the layer as a local set
func (l *KLVLayer) LocalSets() []LocalSet {
	sets := make([]LocalSet, 0, len(l.Packets))
	for _, packet := range l.Packets {
		sets = append(sets, packet.LocalSet())
	}
	return sets
}

func DecodeKLVLayer(data []byte, p gopacket.PacketBuilder) error {
	l := &KLVLayer{}
	err := l.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(l)
	return nil
}

// Scan returns all complete KLV packets found in data in the order they appear
func Scan(data []byte) []*KLVPacket {
	l := &KLVLayer{}
	_ = l.DecodeFromBytes(data, gopacket.NilDecodeFeedback)
	return l.Packets
}

// ScanLocalSets returns the decoded local set of every complete KLV packet in data
func ScanLocalSets(data []byte) []LocalSet {
	l := &KLVLayer{}
	_ = l.DecodeFromBytes(data, gopacket.NilDecodeFeedback)
	return l.LocalSets()
}
