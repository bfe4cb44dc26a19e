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

package jsonsafe

import (
	"encoding/json"
	"reflect"
)

const (
	// DefaultMaxDepth bounds recursion so that cyclic values terminate
	DefaultMaxDepth = 256
)

type Normalizer struct {
	rules    []Rule
	maxDepth int
}

type Option func(*Normalizer)

// WithMaxDepth sets the nesting depth below which values become nil
func WithMaxDepth(depth int) Option {
	return func(n *Normalizer) {
		n.maxDepth = depth
	}
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		rules:    defaultRules,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = NewNormalizer()

// Normalize converts v with the default normalizer
func Normalize(v any) any {
	return defaultNormalizer.Normalize(v)
}

// Marshal normalizes v and encodes the result as JSON
func Marshal(v any) ([]byte, error) {
	return json.Marshal(Normalize(v))
}

// Rules returns the conversion table in the order it is evaluated
func Rules() []Rule {
	rules := make([]Rule, len(defaultRules))
	copy(rules, defaultRules)
	return rules
}

func (n *Normalizer) Normalize(v any) any {
	return n.normalize(reflect.ValueOf(v), 0)
}

func (n *Normalizer) normalize(v reflect.Value, depth int) (out any) {
	if depth > n.maxDepth {
		return nil
	}
	v, ok := indirect(v, n.maxDepth)
	if !ok {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			out = stringify(v)
		}
	}()

	for _, rule := range n.rules {
		if rule.Match(v) {
			return rule.Convert(n, v, depth)
		}
	}
	return stringify(v)
}

// indirect follows pointers and interfaces down to a concrete value.
// Pointers to big numbers and pointer errors are kept since their methods
// are defined on the pointer. It returns false for nil and for chains of
// more than limit references.
func indirect(v reflect.Value, limit int) (reflect.Value, bool) {
	for i := 0; v.IsValid() && i <= limit; i++ {
		switch v.Kind() {
		case reflect.Interface:
			if v.IsNil() {
				return v, false
			}
			v = v.Elem()
		case reflect.Pointer:
			if v.IsNil() {
				return v, false
			}
			if isBigNumber(v.Type()) || v.Type().Implements(errorType) {
				return v, true
			}
			v = v.Elem()
		default:
			return v, true
		}
	}
	return v, false
}
