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
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"jinr.ru/greenlab/go-klv/pkg/log"
)

const (
	BucketName = "records"
	// MaxListLimit bounds the number of records returned by List
	MaxListLimit = 1000
)

// Entry is an archived record document
type Entry struct {
	Seq uint64          `json:"seq"`
	Doc json.RawMessage `json:"record"`
}

// Archive keeps the most recent record documents in a bbolt database
// keyed by big-endian sequence number
type Archive struct {
	DB        *bbolt.DB
	retention int
}

func OpenArchive(path string, retention int) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Archive{
		DB:        db,
		retention: retention,
	}, nil
}

func seqToByte(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

// Close ...
func (a *Archive) Close() error {
	return a.DB.Close()
}

// Put stores a document and prunes records beyond the retention
func (a *Archive) Put(seq uint64, doc []byte) error {
	return a.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketName))
		if b == nil {
			return errors.New("Bucket not found: " + BucketName)
		}
		if err := b.Put(seqToByte(seq), doc); err != nil {
			return err
		}
		if a.retention <= 0 || seq <= uint64(a.retention) {
			return nil
		}
		cutoff := seq - uint64(a.retention)
		var stale [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil && binary.BigEndian.Uint64(k) <= cutoff; k, _ = c.Next() {
			stale = append(stale, k)
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		if len(stale) > 0 {
			log.Debug("Pruned %d archived records", len(stale))
		}
		return nil
	})
}

// Last returns the most recent record
func (a *Archive) Last() (*Entry, error) {
	var entry *Entry
	if err := a.DB.View(func(tx *bbolt.Tx) error {
		k, v := tx.Bucket([]byte(BucketName)).Cursor().Last()
		if k == nil {
			return ErrRecordNotFound{}
		}
		entry = &Entry{Seq: binary.BigEndian.Uint64(k), Doc: append(json.RawMessage{}, v...)}
		return nil
	}); err != nil {
		return nil, err
	}
	return entry, nil
}

// LastSeq returns the sequence number of the most recent record or zero
func (a *Archive) LastSeq() uint64 {
	entry, err := a.Last()
	if err != nil {
		return 0
	}
	return entry.Seq
}

// List returns up to limit most recent records in ascending order
func (a *Archive) List(limit int) ([]Entry, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	entries := make([]Entry, 0, limit)
	if err := a.DB.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(BucketName)).Cursor()
		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			entries = append(entries, Entry{Seq: binary.BigEndian.Uint64(k), Doc: append(json.RawMessage{}, v...)})
		}
		return nil
	}); err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
