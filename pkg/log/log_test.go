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

package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected []string
		skipped  []string
	}{
		{level: "error", expected: []string{"[error] e"}, skipped: []string{"[warn] w", "[info] i", "[debug] d"}},
		{level: "warning", expected: []string{"[error] e", "[warn] w"}, skipped: []string{"[info] i", "[debug] d"}},
		{level: "info", expected: []string{"[error] e", "[warn] w", "[info] i"}, skipped: []string{"[debug] d"}},
		{level: "debug", expected: []string{"[error] e", "[warn] w", "[info] i", "[debug] d"}},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			Init(&buf, tt.level)
			Error("e")
			Warning("w")
			Info("i")
			Debug("d")
			out := buf.String()
			for _, s := range tt.expected {
				if !strings.Contains(out, LogPrefix) || !strings.Contains(out, s) {
					t.Errorf("Expected %q in output: %s", s, out)
				}
			}
			for _, s := range tt.skipped {
				if strings.Contains(out, s) {
					t.Errorf("Unexpected %q in output: %s", s, out)
				}
			}
			if DebugEnabled() != (tt.level == "debug") {
				t.Errorf("Unexpected DebugEnabled for level %s", tt.level)
			}
			if Writer() != &buf {
				t.Errorf("Expected Writer to return the configured output")
			}
		})
	}
}

func TestSetLevelWrong(t *testing.T) {
	if err := SetLevel("verbose"); err == nil {
		t.Errorf("Expected an error for a wrong level")
	}
}
