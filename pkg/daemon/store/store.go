// Package store provides Badger DB-backed storage for per-game achievement
// records.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
)

// Key prefixes for different data types
const (
	prefixRecord = "r:" // r:<shop>:<objectId> -> achievement.Record
	prefixMeta   = "m:" // Metadata (schema, etc.)
)

// maxConflictRetries bounds UpdateRecord retries when two transactions
// touch the same record.
const maxConflictRetries = 64

// ErrNotFound is returned by Get when a game has no record.
var ErrNotFound = errors.New("record not found")

// Store is the achievement record storage backed by Badger DB.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(key achievement.GameKey) []byte {
	return []byte(prefixRecord + key.String())
}

func readRecord(txn *badger.Txn, key achievement.GameKey) (*achievement.Record, bool, error) {
	item, err := txn.Get(recordKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return &achievement.Record{}, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rec achievement.Record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, false, fmt.Errorf("decoding record %s: %w", key, err)
	}
	return &rec, true, nil
}

func writeRecord(txn *badger.Txn, key achievement.GameKey, rec *achievement.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return txn.Set(recordKey(key), data)
}

// Get returns the record for key, or ErrNotFound.
func (s *Store) Get(key achievement.GameKey) (*achievement.Record, error) {
	var rec *achievement.Record
	err := s.db.View(func(txn *badger.Txn) error {
		r, ok, err := readRecord(txn, key)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Load returns the record for key. A missing record is empty.
func (s *Store) Load(key achievement.GameKey) (*achievement.Record, error) {
	rec, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return &achievement.Record{}, nil
	}
	return rec, err
}

// Put replaces the record for key.
func (s *Store) Put(key achievement.GameKey, rec *achievement.Record) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return writeRecord(txn, key, rec)
	})
}

// UpdateRecord re-reads the record for key inside a transaction, applies fn
// and writes the result. Conflicting concurrent updates are retried, so fn
// may run more than once and must only depend on the record it is given.
func (s *Store) UpdateRecord(key achievement.GameKey, fn func(rec *achievement.Record) error) (*achievement.Record, error) {
	for range maxConflictRetries {
		var out *achievement.Record
		err := s.db.Update(func(txn *badger.Txn) error {
			rec, _, err := readRecord(txn, key)
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
			out = rec
			return writeRecord(txn, key, rec)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("updating record %s: %w", key, badger.ErrConflict)
}

// SetDefinitions replaces the cached catalogue for key, keeping its
// unlocked set.
func (s *Store) SetDefinitions(key achievement.GameKey, defs []achievement.Definition) error {
	_, err := s.UpdateRecord(key, func(rec *achievement.Record) error {
		rec.Achievements = defs
		return nil
	})
	return err
}

// ClearUnlocked empties the unlocked set for key, keeping its catalogue.
func (s *Store) ClearUnlocked(key achievement.GameKey) error {
	_, err := s.UpdateRecord(key, func(rec *achievement.Record) error {
		rec.UnlockedAchievements = nil
		return nil
	})
	return err
}

// Delete removes the record for key.
func (s *Store) Delete(key achievement.GameKey) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(key))
	})
}

// Keys returns every game that has a record.
func (s *Store) Keys() ([]achievement.GameKey, error) {
	var keys []achievement.GameKey

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw := strings.TrimPrefix(string(it.Item().Key()), prefixRecord)
			key, err := achievement.ParseGameKey(raw)
			if err != nil {
				continue
			}
			keys = append(keys, key)
		}
		return nil
	})

	return keys, err
}

// CountRecords returns the number of stored records and the total number of
// unlocked achievements across them.
func (s *Store) CountRecords() (records, unlocked int, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec achievement.Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return nil //nolint:nilerr // skip malformed records
				}
				records++
				unlocked += len(rec.UnlockedAchievements)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return records, unlocked, err
}
