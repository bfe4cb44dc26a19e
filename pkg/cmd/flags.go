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

// Package cmd holds helpers shared by the cobra commands
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// EnumValue is a string flag restricted to a set of allowed values
type EnumValue struct {
	value   *string
	allowed []string
}

var _ pflag.Value = &EnumValue{}

func NewEnumValue(p *string, defaultValue string, allowed ...string) *EnumValue {
	*p = defaultValue
	return &EnumValue{value: p, allowed: allowed}
}

func (e *EnumValue) String() string {
	if e.value == nil {
		return ""
	}
	return *e.value
}

func (e *EnumValue) Set(s string) error {
	for _, a := range e.allowed {
		if s == a {
			*e.value = s
			return nil
		}
	}
	return fmt.Errorf("must be one of: %s", strings.Join(e.allowed, ", "))
}

func (e *EnumValue) Type() string {
	return "string"
}

// Help returns the allowed values for a flag usage string
func (e *EnumValue) Help() string {
	return fmt.Sprintf("One of: %s.", strings.Join(e.allowed, ", "))
}

// Changed reports whether a flag was set on the command line
func Changed(flags *pflag.FlagSet, name string) bool {
	f := flags.Lookup(name)
	return f != nil && f.Changed
}
