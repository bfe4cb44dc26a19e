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
	"encoding/binary"
	"math"
	"time"

	"jinr.ru/greenlab/go-klv/pkg/layers"
)

const (
	ChecksumTag           layers.Tag = 1
	PrecisionTimeStampTag layers.Tag = 2
	MissionIDTag          layers.Tag = 3
	PlatformTailNumberTag layers.Tag = 4
	PlatformHeadingTag    layers.Tag = 5
	PlatformPitchTag      layers.Tag = 6
	PlatformRollTag       layers.Tag = 7
	PlatformDesignation   layers.Tag = 10
	ImageSourceSensorTag  layers.Tag = 11
	ImageCoordSystemTag   layers.Tag = 12
	SensorLatitudeTag     layers.Tag = 13
	SensorLongitudeTag    layers.Tag = 14
	SensorAltitudeTag     layers.Tag = 15
	SensorHFOVTag         layers.Tag = 16
	SensorVFOVTag         layers.Tag = 17
	SensorRelAzimuthTag   layers.Tag = 18
	SensorRelElevationTag layers.Tag = 19
	SensorRelRollTag      layers.Tag = 20
	SlantRangeTag         layers.Tag = 21
	TargetWidthTag        layers.Tag = 22
	FrameCenterLatTag     layers.Tag = 23
	FrameCenterLonTag     layers.Tag = 24
	FrameCenterElevTag    layers.Tag = 25
	VersionTag            layers.Tag = 65
)

// UASLocalSetKey is the universal key of the UAS Datalink Local Set
var UASLocalSetKey = [layers.KeyLen]byte{
	0x06, 0x0e, 0x2b, 0x34, 0x02, 0x0b, 0x01, 0x01,
	0x0e, 0x01, 0x03, 0x01, 0x01, 0x00, 0x00, 0x00,
}

// DecodeFunc converts a raw tag value. ok is false when the value
// can not be represented (wrong length, reserved "out of range" code).
type DecodeFunc func(raw []byte) (value any, ok bool)

type Field struct {
	Name   string
	Decode DecodeFunc
}

var fields = map[layers.Tag]Field{
	ChecksumTag:           {"Checksum", decodeUint16},
	PrecisionTimeStampTag: {"Precision Time Stamp", decodeTimestamp},
	MissionIDTag:          {"Mission ID", decodeString},
	PlatformTailNumberTag: {"Platform Tail Number", decodeString},
	PlatformHeadingTag:    {"Platform Heading Angle", unsigned16(0, 360)},
	PlatformPitchTag:      {"Platform Pitch Angle", signed16(40)},
	PlatformRollTag:       {"Platform Roll Angle", signed16(100)},
	PlatformDesignation:   {"Platform Designation", decodeString},
	ImageSourceSensorTag:  {"Image Source Sensor", decodeString},
	ImageCoordSystemTag:   {"Image Coordinate System", decodeString},
	SensorLatitudeTag:     {"Sensor Latitude", signed32(180)},
	SensorLongitudeTag:    {"Sensor Longitude", signed32(360)},
	SensorAltitudeTag:     {"Sensor True Altitude", unsigned16(-900, 19000)},
	SensorHFOVTag:         {"Sensor Horizontal Field of View", unsigned16(0, 180)},
	SensorVFOVTag:         {"Sensor Vertical Field of View", unsigned16(0, 180)},
	SensorRelAzimuthTag:   {"Sensor Relative Azimuth Angle", unsigned32(0, 360)},
	SensorRelElevationTag: {"Sensor Relative Elevation Angle", signed32(360)},
	SensorRelRollTag:      {"Sensor Relative Roll Angle", unsigned32(0, 360)},
	SlantRangeTag:         {"Slant Range", unsigned32(0, 5000000)},
	TargetWidthTag:        {"Target Width", unsigned16(0, 10000)},
	FrameCenterLatTag:     {"Frame Center Latitude", signed32(180)},
	FrameCenterLonTag:     {"Frame Center Longitude", signed32(360)},
	FrameCenterElevTag:    {"Frame Center Elevation", unsigned16(-900, 19000)},
	VersionTag:            {"UAS Datalink LS Version Number", decodeUint8},
}

// ST0601 decodes the supported subset of UAS Datalink Local Set tags.
// The zero value is ready to use.
type ST0601 struct{}

// Interpret returns the engineering value of a tag. Unknown tags and
// undecodable values report ok == false.
func (ST0601) Interpret(tag layers.Tag, raw []byte) (any, bool) {
	f, ok := fields[tag]
	if !ok {
		return nil, false
	}
	return f.Decode(raw)
}

// Name returns the human readable name of a tag or an empty string
func Name(tag layers.Tag) string {
	return fields[tag].Name
}

// Lookup returns the dictionary entry of a tag
func Lookup(tag layers.Tag) (Field, bool) {
	f, ok := fields[tag]
	return f, ok
}

// Tags returns all tags known to the dictionary in ascending order
func Tags() []layers.Tag {
	ls := make(layers.LocalSet, len(fields))
	for tag := range fields {
		ls[tag] = nil
	}
	return ls.Tags()
}

func decodeString(raw []byte) (any, bool) {
	return string(raw), true
}

func decodeUint8(raw []byte) (any, bool) {
	if len(raw) != 1 {
		return nil, false
	}
	return raw[0], true
}

func decodeUint16(raw []byte) (any, bool) {
	if len(raw) != 2 {
		return nil, false
	}
	return binary.BigEndian.Uint16(raw), true
}

// decodeTimestamp decodes microseconds since the UNIX epoch
func decodeTimestamp(raw []byte) (any, bool) {
	if len(raw) != 8 {
		return nil, false
	}
	us := binary.BigEndian.Uint64(raw)
	if us > math.MaxInt64 {
		return nil, false
	}
	return time.UnixMicro(int64(us)).UTC(), true
}

// unsigned16 maps the full uint16 range linearly onto [min, max]
func unsigned16(min, max float64) DecodeFunc {
	return func(raw []byte) (any, bool) {
		if len(raw) != 2 {
			return nil, false
		}
		return min + float64(binary.BigEndian.Uint16(raw))*(max-min)/math.MaxUint16, true
	}
}

func unsigned32(min, max float64) DecodeFunc {
	return func(raw []byte) (any, bool) {
		if len(raw) != 4 {
			return nil, false
		}
		return min + float64(binary.BigEndian.Uint32(raw))*(max-min)/math.MaxUint32, true
	}
}

// signed16 maps [-0x7fff, 0x7fff] onto [-span/2, span/2].
// 0x8000 is reserved for "out of range".
func signed16(span float64) DecodeFunc {
	return func(raw []byte) (any, bool) {
		if len(raw) != 2 {
			return nil, false
		}
		v := int16(binary.BigEndian.Uint16(raw))
		if v == math.MinInt16 {
			return nil, false
		}
		return float64(v) * span / (2 * math.MaxInt16), true
	}
}

// signed32 maps [-0x7fffffff, 0x7fffffff] onto [-span/2, span/2].
// 0x80000000 is reserved for "out of range".
func signed32(span float64) DecodeFunc {
	return func(raw []byte) (any, bool) {
		if len(raw) != 4 {
			return nil, false
		}
		v := int32(binary.BigEndian.Uint32(raw))
		if v == math.MinInt32 {
			return nil, false
		}
		return float64(v) * span / (2 * math.MaxInt32), true
	}
}
