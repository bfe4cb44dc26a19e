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
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"jinr.ru/greenlab/go-klv/pkg/log"
)

const (
	// MaxPersistFiles bounds the number of records files created with the
	// same prefix within one second
	MaxPersistFiles = 1000
)

// Writer appends record documents to a JSON lines file
type Writer struct {
	file *os.File
	buf  *bufio.Writer
}

// NewWriter creates a new file. An existing file is never overwritten.
func NewWriter(filename string) (*Writer, error) {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if !errors.Is(err, fs.ErrExist) {
			log.Error("Error while creating file: %s", filename)
		}
		return nil, err
	}
	return &Writer{
		file: file,
		buf:  bufio.NewWriter(file),
	}, nil
}

// NewPersistWriter creates a records file in dir. Files created within the
// same second get an index suffix.
func NewPersistWriter(dir, prefix string, now time.Time) (*Writer, error) {
	var err error
	for index := 0; index < MaxPersistFiles; index++ {
		var w *Writer
		w, err = NewWriter(PersistFilename(dir, prefix, now, index))
		if !errors.Is(err, fs.ErrExist) {
			return w, err
		}
	}
	return nil, err
}

// PersistFilename returns the name of a records file in dir. A non-zero
// index is appended to the timestamp.
func PersistFilename(dir, prefix string, now time.Time, index int) string {
	if prefix == "" {
		prefix = "klv"
	}
	name := fmt.Sprintf("%s_%s", prefix, now.UTC().Format("20060102_150405"))
	if index > 0 {
		name = fmt.Sprintf("%s_%03d", name, index)
	}
	return filepath.Join(dir, name+".jsonl")
}

func (w *Writer) Name() string {
	return w.file.Name()
}

// Write writes one document followed by a newline
func (w *Writer) Write(doc []byte) (int, error) {
	n, err := w.buf.Write(doc)
	if err != nil {
		return n, err
	}
	return n, w.buf.WriteByte('\n')
}

func (w *Writer) Flush() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
