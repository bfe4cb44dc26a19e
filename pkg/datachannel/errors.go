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

package datachannel

import (
	"fmt"
)

// ErrSessionNotFound returned when an answer refers to an unknown session
type ErrSessionNotFound struct {
	ID string
}

func (e ErrSessionNotFound) Error() string {
	if e.ID == "" {
		return "No session is waiting for an answer"
	}
	return fmt.Sprintf("Session not found: %s", e.ID)
}

// ErrHubClosed returned when the hub does not accept new sessions
type ErrHubClosed struct{}

func (e ErrHubClosed) Error() string {
	return "Data channel hub is closed"
}
