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
	"bytes"
	"math"
	"testing"
)

func TestDecodeBERLength(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		length uint64
		n      int
		ok     bool
	}{
		{name: "empty", data: []byte{}, ok: false},
		{name: "short form zero", data: []byte{0x00}, length: 0, n: 1, ok: true},
		{name: "short form max", data: []byte{0x7f, 0xaa}, length: 127, n: 1, ok: true},
		{name: "long form one byte", data: []byte{0x81, 0x05}, length: 5, n: 2, ok: true},
		{name: "long form two bytes", data: []byte{0x82, 0x01, 0x00}, length: 256, n: 3, ok: true},
		{name: "long form zero count", data: []byte{0x80}, length: 0, n: 1, ok: true},
		{name: "long form incomplete", data: []byte{0x83, 0x01, 0x02}, ok: false},
		{
			name:   "long form eight bytes",
			data:   []byte{0x88, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
			length: 0x0102030405060708, n: 9, ok: true,
		},
		{
			name:   "long form saturates",
			data:   []byte{0x89, 0x01, 0, 0, 0, 0, 0, 0, 0, 0},
			length: math.MaxUint64, n: 10, ok: true,
		},
		{
			name:   "long form leading zeros",
			data:   []byte{0x89, 0, 0, 0, 0, 0, 0, 0, 0, 0x10},
			length: 16, n: 10, ok: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			length, n, ok := DecodeBERLength(tt.data)
			if ok != tt.ok {
				t.Fatalf("Expected ok %t, got %t", tt.ok, ok)
			}
			if !ok {
				return
			}
			if length != tt.length || n != tt.n {
				t.Errorf("Expected length %d n %d, got length %d n %d", tt.length, tt.n, length, n)
			}
		})
	}
}

func TestEncodeBERLength(t *testing.T) {
	tests := []struct {
		length   uint64
		expected []byte
	}{
		{0, []byte{0x00}},
		{5, []byte{0x05}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x80}},
		{255, []byte{0x81, 0xff}},
		{256, []byte{0x82, 0x01, 0x00}},
		{0x010000, []byte{0x83, 0x01, 0x00, 0x00}},
		{math.MaxUint64, []byte{0x88, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		encoded := EncodeBERLength(tt.length)
		if !bytes.Equal(encoded, tt.expected) {
			t.Errorf("EncodeBERLength(%d): expected % x, got % x", tt.length, tt.expected, encoded)
		}
		decoded, n, ok := DecodeBERLength(encoded)
		if !ok || decoded != tt.length || n != len(encoded) {
			t.Errorf("DecodeBERLength(% x): expected %d, got %d (n=%d ok=%t)", encoded, tt.length, decoded, n, ok)
		}
	}
}
