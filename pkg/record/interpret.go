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
	"jinr.ru/greenlab/go-klv/pkg/layers"
	"jinr.ru/greenlab/go-klv/pkg/log"
)

// Interpreter turns the raw value of a Local Set tag into a field value.
// ok == false means there is no value and the raw bytes are kept instead.
type Interpreter interface {
	Interpret(tag layers.Tag, raw []byte) (value any, ok bool)
}

type DecodeFunc func(raw []byte) (any, bool)

// InterpreterFunc adapts a function to the Interpreter interface
type InterpreterFunc func(tag layers.Tag, raw []byte) (any, bool)

func (f InterpreterFunc) Interpret(tag layers.Tag, raw []byte) (any, bool) {
	return f(tag, raw)
}

// Dictionary is an Interpreter backed by per tag decode functions
type Dictionary map[layers.Tag]DecodeFunc

func (d Dictionary) Interpret(tag layers.Tag, raw []byte) (any, bool) {
	decode, ok := d[tag]
	if !ok || decode == nil {
		return nil, false
	}
	return decode(raw)
}

// Interpret builds a record from a local set. Tags the interpreter can not
// decode keep their raw bytes. A nil interpreter keeps raw bytes for all tags.
func Interpret(set layers.LocalSet, in Interpreter) *Record {
	r := &Record{Fields: make([]Field, 0, len(set))}
	for _, tag := range set.Tags() {
		raw := set[tag]
		value, ok := interpretTag(in, tag, raw)
		if !ok {
			value = append([]byte{}, raw...)
			r.Fallbacks++
		}
		r.Fields = append(r.Fields, Field{Tag: int(tag), Value: value})
	}
	return r
}

func interpretTag(in Interpreter, tag layers.Tag, raw []byte) (value any, ok bool) {
	if in == nil {
		return nil, false
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Debug("Interpreter failed for tag %d: %v", tag, rec)
			value, ok = nil, false
		}
	}()
	return in.Interpret(tag, raw)
}
