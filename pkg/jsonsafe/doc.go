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

// Package jsonsafe converts arbitrary Go values into values built only from
// nil, bool, numbers, strings, []any and map[string]any, so that they can be
// encoded as JSON (or CBOR) without errors caused by unsupported types.
//
// Conversion is driven by an ordered table of rules. The first rule whose
// predicate matches a value converts it; the last rule matches everything.
// Normalization never panics: a converter that fails falls back to the
// string representation of the value, and a value that cannot even be
// printed becomes nil.
package jsonsafe
