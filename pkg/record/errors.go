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
	"fmt"
)

// ErrUnknownEncoding returned when an encoder name is not supported
type ErrUnknownEncoding struct {
	Name string
}

func (e ErrUnknownEncoding) Error() string {
	return fmt.Sprintf("Unknown encoding: %s. Must be one of: %s, %s", e.Name, EncodingJSON, EncodingCBOR)
}

// ErrEncode returned when a record can not be encoded
type ErrEncode struct {
	Tag int
	Err error
}

func (e ErrEncode) Error() string {
	if e.Tag != 0 {
		return fmt.Sprintf("Error while encoding tag %d: %s", e.Tag, e.Err)
	}
	return fmt.Sprintf("Error while encoding record: %s", e.Err)
}

func (e ErrEncode) Unwrap() error {
	return e.Err
}
