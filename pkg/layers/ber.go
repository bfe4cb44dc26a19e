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
	"math"
)

const (
	// BERLongForm is set in the first length byte when the low 7 bits count
	// the big-endian length bytes that follow
	BERLongForm = 0x80
	// BERMaxShortLength is the largest length encoded in a single byte
	BERMaxShortLength = 0x7f
)

// DecodeBERLength decodes a BER definite length from the beginning of data.
// It returns the length, the number of bytes the length prefix occupies and
// whether the prefix is complete. Lengths that do not fit into uint64 are
// saturated to math.MaxUint64 so that callers treat them as never fitting
// into a buffer.
func DecodeBERLength(data []byte) (uint64, int, bool) {
	if len(data) == 0 {
		return 0, 0, false
	}
	first := data[0]
	if first&BERLongForm == 0 {
		return uint64(first), 1, true
	}

	n := int(first & BERMaxShortLength)
	if len(data)-1 < n {
		return 0, 0, false
	}

	var length uint64
	saturated := false
	for _, b := range data[1 : 1+n] {
		if length>>56 != 0 {
			saturated = true
		}
		length = length<<8 | uint64(b)
	}
	if saturated {
		length = math.MaxUint64
	}
	return length, 1 + n, true
}

// EncodeBERLength encodes length using the shortest BER definite form
func EncodeBERLength(length uint64) []byte {
	if length <= BERMaxShortLength {
		return []byte{byte(length)}
	}
	var tmp [8]byte
	n := 0
	for v := length; v > 0; v >>= 8 {
		n++
	}
	for i := 0; i < n; i++ {
		tmp[8-n+i] = byte(length >> (8 * uint(n-1-i)))
	}
	out := make([]byte, 0, 1+n)
	out = append(out, BERLongForm|byte(n))
	return append(out, tmp[8-n:]...)
}
