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

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"sigs.k8s.io/yaml"
)

// StreamConfig is the UDP endpoint receiving raw KLV buffers
type StreamConfig struct {
	Address    string `json:"address,omitempty"`
	Port       int    `json:"port,omitempty"`
	BufferSize int    `json:"bufferSize,omitempty"`
}

// ApiConfig is the HTTP endpoint serving signaling and the records API
type ApiConfig struct {
	Address        string   `json:"address,omitempty"`
	Port           int      `json:"port,omitempty"`
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

type WebRTCConfig struct {
	ICEServers   []ICEServer `json:"iceServers"`
	ChannelLabel string      `json:"channelLabel,omitempty"`
	Ordered      bool        `json:"ordered"`
}

type OutputConfig struct {
	// Encoding of published records: json or cbor
	Encoding string `json:"encoding,omitempty"`
	// Dictionary used to interpret tags: st0601 or none
	Dictionary string `json:"dictionary,omitempty"`
}

type ArchiveConfig struct {
	DBPath string `json:"dbPath,omitempty"`
	// Retention is the number of records kept. Zero keeps everything.
	Retention int `json:"retention"`
}

type Config struct {
	LogLevel string         `json:"logLevel,omitempty"`
	Stream   *StreamConfig  `json:"stream,omitempty"`
	Api      *ApiConfig     `json:"api,omitempty"`
	WebRTC   *WebRTCConfig  `json:"webrtc,omitempty"`
	Output   *OutputConfig  `json:"output,omitempty"`
	Archive  *ArchiveConfig `json:"archive,omitempty"`
	filepath string
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(c.filepath), 0755); err != nil {
		return err
	}
	return os.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file over the current values. A missing file
// leaves the config as it is.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.filepath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", c.filepath, err)
	}
	return nil
}

// Validate checks the values that can not be fixed by defaults
func (c *Config) Validate() error {
	if c.Stream == nil || c.Api == nil || c.WebRTC == nil || c.Output == nil || c.Archive == nil {
		return ErrInvalidConfig{Field: "config", What: "all sections must be present"}
	}
	switch c.LogLevel {
	case "error", "warning", "info", "debug":
	default:
		return ErrInvalidConfig{Field: "logLevel", What: c.LogLevel}
	}
	if c.Stream.Port <= 0 || c.Stream.Port > 65535 {
		return ErrInvalidConfig{Field: "stream.port", What: strconv.Itoa(c.Stream.Port)}
	}
	if c.Stream.BufferSize < 18 {
		return ErrInvalidConfig{Field: "stream.bufferSize", What: "must be at least 18 bytes"}
	}
	if c.Api.Port <= 0 || c.Api.Port > 65535 {
		return ErrInvalidConfig{Field: "api.port", What: strconv.Itoa(c.Api.Port)}
	}
	if c.WebRTC.ChannelLabel == "" {
		return ErrInvalidConfig{Field: "webrtc.channelLabel", What: "must not be empty"}
	}
	switch c.Output.Encoding {
	case "json", "cbor":
	default:
		return ErrInvalidConfig{Field: "output.encoding", What: c.Output.Encoding}
	}
	switch c.Output.Dictionary {
	case DictionaryST0601, DictionaryNone:
	default:
		return ErrInvalidConfig{Field: "output.dictionary", What: c.Output.Dictionary}
	}
	if c.Archive.Retention < 0 {
		return ErrInvalidConfig{Field: "archive.retention", What: "must not be negative"}
	}
	return nil
}

func (c *Config) StreamAddr() string {
	return net.JoinHostPort(c.Stream.Address, strconv.Itoa(c.Stream.Port))
}

func (c *Config) ApiAddr() string {
	return net.JoinHostPort(c.Api.Address, strconv.Itoa(c.Api.Port))
}

// ApiURL is the base URL clients use to reach the API
func (c *Config) ApiURL() string {
	host := c.Api.Address
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(c.Api.Port)))
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Stream: &StreamConfig{
			Address:    DefaultStreamAddress,
			Port:       DefaultStreamPort,
			BufferSize: DefaultStreamBufferSize,
		},
		Api: &ApiConfig{
			Address:        DefaultApiAddress,
			Port:           DefaultApiPort,
			AllowedOrigins: []string{"*"},
		},
		WebRTC: &WebRTCConfig{
			ICEServers:   []ICEServer{{URLs: []string{DefaultICEServerURL}}},
			ChannelLabel: DefaultChannelLabel,
			Ordered:      true,
		},
		Output: &OutputConfig{
			Encoding:   DefaultEncoding,
			Dictionary: DefaultDictionary,
		},
		Archive: &ArchiveConfig{
			DBPath:    filepath.Join(filepath.Dir(DefaultConfigPath()), DefaultDBFile),
			Retention: DefaultRetention,
		},
		filepath: DefaultConfigPath(),
	}
}
