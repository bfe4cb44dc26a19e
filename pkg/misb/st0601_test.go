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

package misb

import (
	"math"
	"testing"
	"time"

	"jinr.ru/greenlab/go-klv/pkg/layers"
)

func TestInterpretFloat(t *testing.T) {
	tests := []struct {
		name     string
		tag      layers.Tag
		raw      []byte
		expected float64
	}{
		{name: "heading", tag: PlatformHeadingTag, raw: []byte{0x71, 0xc2}, expected: 159.9744},
		{name: "pitch", tag: PlatformPitchTag, raw: []byte{0xfd, 0x3d}, expected: -0.4315},
		{name: "roll", tag: PlatformRollTag, raw: []byte{0x08, 0xb8}, expected: 3.4058},
		{name: "sensor latitude", tag: SensorLatitudeTag, raw: []byte{0x55, 0x95, 0xb6, 0x6d}, expected: 60.1768},
		{name: "sensor longitude", tag: SensorLongitudeTag, raw: []byte{0x5b, 0x53, 0x60, 0xc4}, expected: 128.4268},
		{name: "sensor altitude", tag: SensorAltitudeTag, raw: []byte{0xc2, 0x21}, expected: 14190.7},
		{name: "altitude minimum", tag: FrameCenterElevTag, raw: []byte{0x00, 0x00}, expected: -900},
		{name: "hfov maximum", tag: SensorHFOVTag, raw: []byte{0xff, 0xff}, expected: 180},
		{name: "slant range maximum", tag: SlantRangeTag, raw: []byte{0xff, 0xff, 0xff, 0xff}, expected: 5000000},
		{name: "negative latitude", tag: FrameCenterLatTag, raw: []byte{0x80, 0x00, 0x00, 0x01}, expected: -90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := ST0601{}.Interpret(tt.tag, tt.raw)
			if !ok {
				t.Fatalf("Expected a value for tag %d", tt.tag)
			}
			f, isFloat := value.(float64)
			if !isFloat {
				t.Fatalf("Expected float64, got %T", value)
			}
			if math.Abs(f-tt.expected) > 1e-3*math.Max(1, math.Abs(tt.expected)) {
				t.Errorf("Expected %f, got %f", tt.expected, f)
			}
		})
	}
}

func TestInterpretNoValue(t *testing.T) {
	tests := []struct {
		name string
		tag  layers.Tag
		raw  []byte
	}{
		{name: "unknown tag", tag: 200, raw: []byte{0x01}},
		{name: "reserved pitch", tag: PlatformPitchTag, raw: []byte{0x80, 0x00}},
		{name: "reserved latitude", tag: SensorLatitudeTag, raw: []byte{0x80, 0x00, 0x00, 0x00}},
		{name: "reserved elevation", tag: SensorRelElevationTag, raw: []byte{0x80, 0x00, 0x00, 0x00}},
		{name: "short heading", tag: PlatformHeadingTag, raw: []byte{0x01}},
		{name: "long checksum", tag: ChecksumTag, raw: []byte{0x01, 0x02, 0x03}},
		{name: "empty version", tag: VersionTag, raw: nil},
		{name: "short timestamp", tag: PrecisionTimeStampTag, raw: []byte{0x00, 0x01}},
		{name: "timestamp overflow", tag: PrecisionTimeStampTag, raw: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if value, ok := (ST0601{}).Interpret(tt.tag, tt.raw); ok {
				t.Errorf("Expected no value, got %#v", value)
			}
		})
	}
}

func TestInterpretTyped(t *testing.T) {
	ts, ok := ST0601{}.Interpret(PrecisionTimeStampTag, []byte{0x00, 0x04, 0x59, 0xf4, 0xa6, 0xaa, 0x4a, 0xa8})
	if !ok {
		t.Fatalf("Expected timestamp value")
	}
	expected := time.Date(2008, 10, 24, 0, 13, 29, 913000000, time.UTC)
	if !ts.(time.Time).Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, ts)
	}

	mission, _ := ST0601{}.Interpret(MissionIDTag, []byte("MISSION01"))
	if mission != "MISSION01" {
		t.Errorf("Expected MISSION01, got %#v", mission)
	}

	version, _ := ST0601{}.Interpret(VersionTag, []byte{0x0b})
	if version != uint8(11) {
		t.Errorf("Expected version 11, got %#v", version)
	}

	checksum, _ := ST0601{}.Interpret(ChecksumTag, []byte{0xc8, 0xd6})
	if checksum != uint16(0xc8d6) {
		t.Errorf("Expected checksum 0xc8d6, got %#v", checksum)
	}
}

func TestName(t *testing.T) {
	if name := Name(PlatformHeadingTag); name != "Platform Heading Angle" {
		t.Errorf("Expected Platform Heading Angle, got %q", name)
	}
	if name := Name(250); name != "" {
		t.Errorf("Expected empty name for unknown tag, got %q", name)
	}
	tags := Tags()
	if len(tags) != len(fields) {
		t.Fatalf("Expected %d tags, got %d", len(fields), len(tags))
	}
	for i := 1; i < len(tags); i++ {
		if tags[i-1] >= tags[i] {
			t.Errorf("Tags are not in ascending order: %v", tags)
		}
	}
}
