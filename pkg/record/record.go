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
	"strconv"
	"time"

	"jinr.ru/greenlab/go-klv/pkg/jsonsafe"
)

type Field struct {
	Tag   int
	Value any
}

// Record is the interpreted form of one Local Set. Fields are kept in
// ascending tag order.
type Record struct {
	Seq      uint64
	Received time.Time
	Fields   []Field
	// Fallbacks is the number of fields that kept their raw bytes
	Fallbacks int
}

// Get returns the value of a tag
func (r *Record) Get(tag int) (any, bool) {
	for _, f := range r.Fields {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return nil, false
}

// Normalized returns the JSON-safe form of the record keyed by tag number
func (r *Record) Normalized() map[string]any {
	result := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		result[strconv.Itoa(f.Tag)] = jsonsafe.Normalize(f.Value)
	}
	return result
}
