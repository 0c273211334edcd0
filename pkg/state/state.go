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

// Package state persists calibration results and register snapshots per
// scanner model in a bbolt database.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-scan/pkg/calibration"
	"jinr.ru/greenlab/go-scan/pkg/log"
	"jinr.ru/greenlab/go-scan/pkg/regs"
)

const (
	BucketNamePrefix  = "model_"
	CalibrationPrefix = "cal/"
	RegistersKey      = "registers"
)

type ErrNotFound struct {
	Model string
	Key   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s: key not found: %s", e.Model, e.Key)
}

type ErrExpired struct {
	Model string
	Key   string
	Age   time.Duration
}

func (e ErrExpired) Error() string {
	return fmt.Sprintf("%s: %s expired %s ago", e.Model, e.Key, e.Age.Round(time.Second))
}

type Store struct {
	context.Context
	DB *bbolt.DB
	// Expiration bounds the age of a usable calibration, zero keeps
	// entries forever
	Expiration time.Duration
	Now        func() time.Time
}

func NewStore(ctx context.Context, path string, expiration time.Duration) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &Store{
		Context:    ctx,
		DB:         db,
		Expiration: expiration,
		Now:        time.Now,
	}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func bucketName(model string) []byte {
	return []byte(BucketNamePrefix + model)
}

// CalibrationKey identifies a calibration inside the model bucket
func CalibrationKey(dpi int, color bool, channels int) string {
	mode := "gray"
	if color {
		mode = "color"
	}
	return fmt.Sprintf("%s%d/%s/%d", CalibrationPrefix, dpi, mode, channels)
}

func (s *Store) put(model, key string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName(model))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

func (s *Store) get(model, key string, v interface{}) error {
	return s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName(model))
		if b == nil {
			return ErrNotFound{Model: model, Key: key}
		}
		data := b.Get([]byte(key))
		if data == nil {
			return ErrNotFound{Model: model, Key: key}
		}
		return yaml.Unmarshal(data, v)
	})
}

// PutCalibration stores st stamped with the current time
func (s *Store) PutCalibration(model string, dpi int, color bool, st *calibration.State) error {
	entry := st.Clone()
	entry.Created = s.Now().UTC()
	key := CalibrationKey(dpi, color, len(st.Channels))
	log.Debug("Storing calibration %s/%s: %s", model, key, entry)
	return s.put(model, key, entry)
}

// GetCalibration returns a stored calibration younger than Expiration
func (s *Store) GetCalibration(model string, dpi int, color bool, channels int) (*calibration.State, error) {
	key := CalibrationKey(dpi, color, channels)
	st := &calibration.State{}
	if err := s.get(model, key, st); err != nil {
		return nil, err
	}
	if age := s.Now().Sub(st.Created); s.Expiration > 0 && age > s.Expiration {
		return nil, ErrExpired{Model: model, Key: key, Age: age - s.Expiration}
	}
	return st, nil
}

// PurgeExpired drops the expired calibrations of a model
func (s *Store) PurgeExpired(model string) (int, error) {
	if s.Expiration == 0 {
		return 0, nil
	}
	purged := 0
	err := s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName(model))
		if b == nil {
			return nil
		}
		var stale [][]byte
		c := b.Cursor()
		prefix := []byte(CalibrationPrefix)
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			st := &calibration.State{}
			if err := yaml.Unmarshal(v, st); err != nil {
				log.Warning("Dropping unreadable calibration %s/%s: %s", model, k, err)
				stale = append(stale, append([]byte(nil), k...))
				continue
			}
			if s.Now().Sub(st.Created) > s.Expiration {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		purged = len(stale)
		return nil
	})
	return purged, err
}

func hasPrefix(k, prefix []byte) bool {
	return len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix)
}

// PutRegisters keeps the last committed register snapshot of a model
func (s *Store) PutRegisters(model string, snap regs.Snapshot) error {
	return s.put(model, RegistersKey, snap)
}

func (s *Store) GetRegisters(model string) (regs.Snapshot, error) {
	var snap regs.Snapshot
	if err := s.get(model, RegistersKey, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// IsMiss reports errors that only mean nothing usable is stored
func IsMiss(err error) bool {
	return errors.As(err, &ErrNotFound{}) || errors.As(err, &ErrExpired{})
}
