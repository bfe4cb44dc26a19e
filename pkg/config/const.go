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

package config

const (
	ConfigDir  = ".go-klv"
	ConfigFile = "config"

	DefaultLogLevel = "info"

	DefaultStreamAddress    = "0.0.0.0"
	DefaultStreamPort       = 5000
	DefaultStreamBufferSize = 65536

	DefaultApiAddress = "127.0.0.1"
	DefaultApiPort    = 8080

	DefaultICEServerURL = "stun:stun.l.google.com:19302"
	DefaultChannelLabel = "klv"

	DefaultEncoding   = "json"
	DefaultDictionary = DictionaryST0601

	DefaultDBFile    = "records.db"
	DefaultRetention = 10000
)

const (
	DictionaryST0601 = "st0601"
	DictionaryNone   = "none"
)
