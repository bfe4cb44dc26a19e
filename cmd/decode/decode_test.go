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

package decode

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jinr.ru/greenlab/go-klv/pkg/config"
	"jinr.ru/greenlab/go-klv/pkg/layers"
	"jinr.ru/greenlab/go-klv/pkg/misb"
)

func testStream(t *testing.T) []byte {
	t.Helper()
	var data []byte
	for _, mission := range []string{"M1", "M2"} {
		packet, err := misb.NewChecksummedPacket(misb.UASLocalSetKey,
			layers.LocalSetEntry{Tag: misb.MissionIDTag, Value: []byte(mission)},
			layers.LocalSetEntry{Tag: misb.VersionTag, Value: []byte{0x0b}},
		)
		if err != nil {
			t.Fatalf("NewChecksummedPacket: %v", err)
		}
		data = append(data, packet...)
	}
	return data
}

func runDecode(t *testing.T, stdin []byte, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewCommand(config.NewDefaultConfig())
	cmd.SetArgs(args)
	cmd.SetIn(bytes.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestDecode(t *testing.T) {
	data := testStream(t)
	path := filepath.Join(t.TempDir(), "metadata.klv")
	if err := os.WriteFile(path, append(data, 0x06, 0x0e), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		stdin    []byte
		args     []string
		expected []string
	}{
		{
			name:     "file",
			args:     []string{path},
			expected: []string{`"3":"M1"`, `"3":"M2"`, `"65":11`},
		},
		{
			name:     "stdin",
			stdin:    data,
			args:     []string{"-"},
			expected: []string{`"3":"M1"`, `"3":"M2"`},
		},
		{
			name:     "raw",
			args:     []string{path, "--raw"},
			expected: []string{`"3":"4d31"`, `"65":"0b"`},
		},
		{
			name:     "no dictionary",
			args:     []string{path, "--dictionary", "none"},
			expected: []string{`"3":"TTE="`},
		},
		{
			name:     "yaml",
			args:     []string{path, "--output", "yaml"},
			expected: []string{"---\n", `"3": M1`, `"65": 11`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runDecode(t, tt.stdin, tt.args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, s := range tt.expected {
				if !strings.Contains(out, s) {
					t.Errorf("Expected %q in output:\n%s", s, out)
				}
			}
		})
	}
}

func TestDecodeOneDocumentPerPacket(t *testing.T) {
	out, _, err := runDecode(t, testStream(t), "-")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 2 {
		t.Errorf("Expected 2 documents, got %d:\n%s", len(lines), out)
	}
}

func TestDecodeVerify(t *testing.T) {
	data := testStream(t)
	data[20] ^= 0xff
	_, errOut, err := runDecode(t, data, "-", "--verify")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(errOut, "packet 0: wrong or missing checksum") {
		t.Errorf("Expected checksum report for packet 0, got %q", errOut)
	}
	if strings.Contains(errOut, "packet 1") {
		t.Errorf("Unexpected report for packet 1: %q", errOut)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing file", args: []string{filepath.Join(t.TempDir(), "missing.klv")}},
		{name: "no args", args: []string{}},
		{name: "bad output", args: []string{"-", "--output", "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := runDecode(t, nil, tt.args...); err == nil {
				t.Errorf("Expected an error")
			}
		})
	}
}
