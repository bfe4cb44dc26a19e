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

package record

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/fxamacker/cbor/v2"

	"jinr.ru/greenlab/go-klv/pkg/jsonsafe"
)

const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

type Encoder interface {
	Encode(r *Record) ([]byte, error)
	ContentType() string
}

func NewEncoder(name string) (Encoder, error) {
	switch name {
	case EncodingJSON, "":
		return JSONEncoder{}, nil
	case EncodingCBOR:
		return NewCBOREncoder()
	}
	return nil, ErrUnknownEncoding{Name: name}
}

// JSONEncoder writes a record as a JSON object with keys in ascending
// numeric tag order
type JSONEncoder struct{}

func (JSONEncoder) ContentType() string {
	return "application/json"
}

func (JSONEncoder) Encode(r *Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(strconv.Itoa(f.Tag))
		if err != nil {
			return nil, err
		}
		value, err := jsonsafe.Marshal(f.Value)
		if err != nil {
			return nil, ErrEncode{Tag: f.Tag, Err: err}
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CBOREncoder writes a record as a CBOR map keyed by integer tags
type CBOREncoder struct {
	mode cbor.EncMode
}

func NewCBOREncoder() (*CBOREncoder, error) {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return &CBOREncoder{mode: mode}, nil
}

func (e *CBOREncoder) ContentType() string {
	return "application/cbor"
}

func (e *CBOREncoder) Encode(r *Record) ([]byte, error) {
	fields := make(map[int]any, len(r.Fields))
	for _, f := range r.Fields {
		fields[f.Tag] = jsonsafe.Normalize(f.Value)
	}
	data, err := e.mode.Marshal(fields)
	if err != nil {
		return nil, ErrEncode{Err: err}
	}
	return data, nil
}
