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

package klv

import (
	"encoding/hex"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-klv/pkg/config"
	"jinr.ru/greenlab/go-klv/pkg/layers"
	"jinr.ru/greenlab/go-klv/pkg/log"
	"jinr.ru/greenlab/go-klv/pkg/misb"
	"jinr.ru/greenlab/go-klv/pkg/record"
)

// NewInterpreter returns the interpreter for a dictionary name.
// The "none" dictionary keeps raw bytes for all tags.
func NewInterpreter(dictionary string) (record.Interpreter, error) {
	switch dictionary {
	case config.DictionaryST0601, "":
		return misb.ST0601{}, nil
	case config.DictionaryNone:
		return nil, nil
	}
	return nil, ErrUnknownDictionary{Name: dictionary}
}

// NewPacket decodes a buffer as a sequence of KLV packets
func NewPacket(data []byte, ci gopacket.CaptureInfo) gopacket.Packet {
	packet := gopacket.NewPacket(data, layers.KLVLayerType, gopacket.DecodeOptions{NoCopy: true})
	packet.Metadata().CaptureInfo = ci
	return packet
}

// Interpret turns every complete KLV packet of a decoded buffer into a record
func Interpret(packet gopacket.Packet, in record.Interpreter) []*record.Record {
	klvLayer := packet.Layer(layers.KLVLayerType)
	if klvLayer == nil {
		return nil
	}
	kl := klvLayer.(*layers.KLVLayer)
	if packet.Metadata().Truncated {
		log.Debug("Dropped incomplete tail of %d bytes", len(kl.LayerPayload()))
		if log.DebugEnabled() {
			log.Debug("Tail: \n%s", hex.Dump(kl.LayerPayload()))
		}
	}

	received := packet.Metadata().Timestamp
	records := make([]*record.Record, 0, len(kl.Packets))
	for _, p := range kl.Packets {
		r := record.Interpret(p.LocalSet(), in)
		r.Received = received
		records = append(records, r)
	}
	return records
}

// Decode scans a buffer and interprets all complete packets
func Decode(data []byte, in record.Interpreter) []*record.Record {
	return Interpret(NewPacket(data, gopacket.CaptureInfo{Length: len(data), CaptureLength: len(data)}), in)
}
