package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
)

// CurrentSchemaVersion is the record layout this build writes.
//
//	1  records as written by the first release; unlocked names keep file case
//	2  at most one unlocked entry per normalised name
const CurrentSchemaVersion = 2

const schemaKey = prefixMeta + "schema"

// Schema is the version stamp kept beside the records.
type Schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MigrationProgress reports how far a single migration step has got.
type MigrationProgress struct {
	FromVersion  int
	ToVersion    int
	RecordsTotal int64
	RecordsDone  int64
}

// MigrationProgressFunc receives progress after each migrated record.
type MigrationProgressFunc func(MigrationProgress)

// recordMigration rewrites one record in place for the step to its version.
type recordMigration func(rec *achievement.Record)

// migrations maps a target version to the rewrite that produces it.
var migrations = map[int]recordMigration{
	2: func(rec *achievement.Record) {
		rec.UnlockedAchievements = dedupeUnlocked(rec.UnlockedAchievements)
	},
}

// GetSchema returns the stored version stamp, or nil if none was written.
func (s *Store) GetSchema() *Schema {
	var schema *Schema
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			schema = new(Schema)
			return json.Unmarshal(val, schema)
		})
	})
	if err != nil {
		return nil
	}
	return schema
}

// SetSchema stamps the store with a version.
func (s *Store) SetSchema(schema *Schema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaKey), data)
	})
}

// NeedsMigration reports whether Migrate has work to do.
func (s *Store) NeedsMigration() bool {
	v, err := s.storedVersion()
	return err == nil && v != 0 && v < CurrentSchemaVersion
}

// storedVersion returns the version of the data on disk. An unstamped store
// holding records predates stamping and counts as version 1; an empty one
// returns 0.
func (s *Store) storedVersion() (int, error) {
	if schema := s.GetSchema(); schema != nil {
		return schema.Version, nil
	}
	keys, err := s.Keys()
	if err != nil || len(keys) == 0 {
		return 0, err
	}
	return 1, nil
}

// Migrate brings the store up to CurrentSchemaVersion and returns how many
// steps ran. An empty store is stamped without running any.
func (s *Store) Migrate(ctx context.Context, onProgress MigrationProgressFunc) (int, error) {
	from, err := s.storedVersion()
	if err != nil {
		return 0, err
	}
	if from == 0 {
		return 0, s.stamp(CurrentSchemaVersion)
	}

	steps := 0
	for to := from + 1; to <= CurrentSchemaVersion; to++ {
		migrate, ok := migrations[to]
		if !ok {
			return steps, fmt.Errorf("store: no migration to schema version %d", to)
		}
		if err := s.runMigration(ctx, to, migrate, onProgress); err != nil {
			return steps, err
		}
		if err := s.stamp(to); err != nil {
			return steps, err
		}
		steps++
	}
	return steps, nil
}

func (s *Store) stamp(version int) error {
	return s.SetSchema(&Schema{Version: version, UpdatedAt: time.Now()})
}

func (s *Store) runMigration(ctx context.Context, to int, migrate recordMigration, onProgress MigrationProgressFunc) error {
	keys, err := s.Keys()
	if err != nil {
		return err
	}

	progress := MigrationProgress{FromVersion: to - 1, ToVersion: to, RecordsTotal: int64(len(keys))}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.UpdateRecord(key, func(rec *achievement.Record) error {
			migrate(rec)
			return nil
		}); err != nil {
			return err
		}

		progress.RecordsDone++
		if onProgress != nil {
			onProgress(progress)
		}
	}
	return nil
}

// dedupeUnlocked collapses entries whose names differ only by case, keeping
// the first spelling and the earliest non-zero unlock time.
func dedupeUnlocked(in []achievement.Unlocked) []achievement.Unlocked {
	index := make(map[string]int, len(in))
	out := make([]achievement.Unlocked, 0, len(in))
	for _, u := range in {
		name := achievement.NormalizeName(u.Name)
		i, seen := index[name]
		if !seen {
			index[name] = len(out)
			out = append(out, u)
			continue
		}
		if u.UnlockTime > 0 && (out[i].UnlockTime == 0 || u.UnlockTime < out[i].UnlockTime) {
			out[i].UnlockTime = u.UnlockTime
		}
	}
	return out
}
