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

package layers

import (
	"fmt"
	"sort"
)

const (
	// LocalSetEntryHeaderLen is one tag byte plus one length byte
	LocalSetEntryHeaderLen = 2
	// LocalSetMaxValueLen is the largest value a one byte length can describe
	LocalSetMaxValueLen = 255
)

// Tag is a local set tag number
type Tag uint8

// LocalSet maps a tag to its raw value bytes.
// Value slices share memory with the buffer they were decoded from.
type LocalSet map[Tag][]byte

// LocalSetEntry is a single tag/length/value item of a local set
type LocalSetEntry struct {
	Tag   Tag
	Value []byte
}

// DecodeLocalSet decodes the value region of a local set packet.
// Decoding stops at the first entry whose declared length runs past the end
// of the region; entries decoded before it are kept. A tag that appears more
// than once keeps its last value.
func DecodeLocalSet(value []byte) LocalSet {
	set := LocalSet{}
	i := 0
	for len(value)-i >= LocalSetEntryHeaderLen {
		tag := Tag(value[i])
		length := int(value[i+1])
		start := i + LocalSetEntryHeaderLen
		stop := start + length
		if stop > len(value) {
			break
		}
		set[tag] = value[start:stop]
		i = stop
	}
	return set
}

// EncodeLocalSet packs entries in the given order without padding
func EncodeLocalSet(entries []LocalSetEntry) ([]byte, error) {
	size := 0
	for _, e := range entries {
		if len(e.Value) > LocalSetMaxValueLen {
			return nil, ErrLocalSetValueTooLong{Tag: e.Tag, Length: len(e.Value)}
		}
		size += LocalSetEntryHeaderLen + len(e.Value)
	}
	buf := make([]byte, 0, size)
	for _, e := range entries {
		buf = append(buf, byte(e.Tag), byte(len(e.Value)))
		buf = append(buf, e.Value...)
	}
	return buf, nil
}

// Tags returns the tags of the set in ascending order
func (s LocalSet) Tags() []Tag {
	tags := make([]Tag, 0, len(s))
	for tag := range s {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Entries returns the set as entries in ascending tag order
func (s LocalSet) Entries() []LocalSetEntry {
	entries := make([]LocalSetEntry, 0, len(s))
	for _, tag := range s.Tags() {
		entries = append(entries, LocalSetEntry{Tag: tag, Value: s[tag]})
	}
	return entries
}

func (t Tag) String() string {
	return fmt.Sprintf("%d", uint8(t))
}
