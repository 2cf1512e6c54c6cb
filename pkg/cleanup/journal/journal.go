// Package journal persists tracked cleanup entities in BadgerDB so data
// left behind by a crashed or killed test run can be found and swept later.
//
// Storage model:
//
//	entity:{identifier}\x00{kind}\x00{id} -> JSON(Record)
//
// Keys are derived from the entity itself, so appending the same entity
// twice stores it once.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/screening-e2e/pkg/cleanup"
)

const (
	prefixEntity = "entity:"
	sep          = "\x00"
)

// Record is one journaled entity.
type Record struct {
	Identifier string         `json:"identifier"`
	Entity     cleanup.Entity `json:"entity"`
	TrackedAt  time.Time      `json:"tracked_at"`
}

// Journal implements cleanup.Journal on top of BadgerDB.
type Journal struct {
	db  *badgerdb.DB
	now func() time.Time
}

var _ cleanup.Journal = (*Journal)(nil)

// Open opens or creates a journal at dir.
func Open(dir string) (*Journal, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cleanup journal at %s: %w", dir, err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// OpenInMemory opens a journal that lives only as long as the process.
func OpenInMemory() (*Journal, error) {
	opts := badgerdb.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory cleanup journal: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func identifierPrefix(identifier string) []byte {
	return []byte(prefixEntity + identifier + sep)
}

func entityKey(identifier string, e cleanup.Entity) []byte {
	return []byte(prefixEntity + identifier + sep + string(e.Kind) + sep + e.ID)
}

// Append records e under identifier.
func (j *Journal) Append(identifier string, e cleanup.Entity) error {
	data, err := json.Marshal(Record{Identifier: identifier, Entity: e, TrackedAt: j.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal journal record: %w", err)
	}
	return j.db.Update(func(txn *badgerdb.Txn) error {
		key := entityKey(identifier, e)
		// Keep the original timestamp when the entity is tracked again.
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if err != badgerdb.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, data)
	})
}

// Forget removes every record under identifier.
func (j *Journal) Forget(identifier string) error {
	_, err := j.deletePrefix(identifierPrefix(identifier))
	return err
}

// Remove deletes a single record.
func (j *Journal) Remove(identifier string, e cleanup.Entity) error {
	return j.db.Update(func(txn *badgerdb.Txn) error {
		err := txn.Delete(entityKey(identifier, e))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Purge removes every record and returns how many were deleted.
func (j *Journal) Purge() (int, error) {
	return j.deletePrefix([]byte(prefixEntity))
}

func (j *Journal) deletePrefix(prefix []byte) (int, error) {
	var keys [][]byte
	err := j.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = j.db.Update(func(txn *badgerdb.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Pending returns all records, ordered by identifier and then by the time
// they were tracked. A non-empty identifier restricts the result to it.
func (j *Journal) Pending(ctx context.Context, identifier string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(prefixEntity)
	if identifier != "" {
		prefix = identifierPrefix(identifier)
	}

	var records []Record
	err := j.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var r Record
				if err := json.Unmarshal(val, &r); err != nil {
					return err
				}
				records = append(records, r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(a, b int) bool {
		if records[a].Identifier != records[b].Identifier {
			return records[a].Identifier < records[b].Identifier
		}
		return records[a].TrackedAt.Before(records[b].TrackedAt)
	})
	return records, nil
}

// Summary returns per-identifier counts of pending records.
func (j *Journal) Summary(ctx context.Context) (map[string]cleanup.Status, error) {
	records, err := j.Pending(ctx, "")
	if err != nil {
		return nil, err
	}
	return Summarize(records), nil
}

// Summarize counts records per identifier.
func Summarize(records []Record) map[string]cleanup.Status {
	out := make(map[string]cleanup.Status)
	for _, r := range records {
		st := out[r.Identifier]
		switch r.Entity.Kind {
		case cleanup.KindUser:
			st.Users++
		case cleanup.KindApplication:
			st.Applications++
		case cleanup.KindSession:
			st.Sessions++
		}
		out[r.Identifier] = st
	}
	return out
}

// Replay loads pending records into tracker so they can be swept. Records
// older than olderThan are included; a zero duration includes everything.
func (j *Journal) Replay(ctx context.Context, tracker *cleanup.EntityTracker, identifier string, olderThan time.Duration) (int, error) {
	records, err := j.Pending(ctx, identifier)
	if err != nil {
		return 0, err
	}
	cutoff := j.now().Add(-olderThan)
	n := 0
	for _, r := range records {
		if olderThan > 0 && r.TrackedAt.After(cutoff) {
			continue
		}
		tracker.Track(r.Identifier, r.Entity)
		n++
	}
	return n, nil
}
