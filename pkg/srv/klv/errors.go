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

package klv

import (
	"fmt"
)

// ErrRecordNotFound returned when the archive has no matching record
type ErrRecordNotFound struct{}

func (e ErrRecordNotFound) Error() string {
	return "Record not found"
}

// ErrUnknownDictionary returned when the configured dictionary is not supported
type ErrUnknownDictionary struct {
	Name string
}

func (e ErrUnknownDictionary) Error() string {
	return fmt.Sprintf("Unknown dictionary: %s", e.Name)
}

// ErrNotPersisting returned when flush is requested with no open file
type ErrNotPersisting struct{}

func (e ErrNotPersisting) Error() string {
	return "Records are not being persisted"
}
