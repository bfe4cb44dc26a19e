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

package misb

import (
	"encoding/binary"

	"jinr.ru/greenlab/go-klv/pkg/layers"
)

const checksumEntryLen = 4

// Checksum computes the ST 0601 16-bit running sum
func Checksum(data []byte) uint16 {
	var sum uint16
	for i, b := range data {
		sum += uint16(b) << (8 * ((i + 1) % 2))
	}
	return sum
}

// VerifyChecksum checks a serialized packet whose last Local Set entry is
// the checksum tag. The sum covers every byte from the key up to and
// including the checksum tag and length.
func VerifyChecksum(packet []byte) bool {
	if len(packet) < layers.MinPacketLen+checksumEntryLen {
		return false
	}
	entry := packet[len(packet)-checksumEntryLen:]
	if layers.Tag(entry[0]) != ChecksumTag || entry[1] != 2 {
		return false
	}
	expected := binary.BigEndian.Uint16(entry[2:])
	return Checksum(packet[:len(packet)-2]) == expected
}

// NewChecksummedPacket serializes a packet with the given key and entries
// and terminates its Local Set with a valid checksum entry.
func NewChecksummedPacket(key [layers.KeyLen]byte, entries ...layers.LocalSetEntry) ([]byte, error) {
	value, err := layers.EncodeLocalSet(entries)
	if err != nil {
		return nil, err
	}
	value = append(value, byte(ChecksumTag), 2, 0, 0)
	packet := append([]byte{}, key[:]...)
	packet = append(packet, layers.EncodeBERLength(uint64(len(value)))...)
	packet = append(packet, value...)
	binary.BigEndian.PutUint16(packet[len(packet)-2:], Checksum(packet[:len(packet)-2]))
	return packet, nil
}
