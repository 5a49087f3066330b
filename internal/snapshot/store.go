// Package snapshot persists one L3 snapshot per instrument in an
// embedded pebble store. This is warm-start state, not history: every
// save overwrites the previous snapshot for that instrument.
package snapshot

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/cockroachdb/pebble"

	"depthd/internal/book"
)

// Snapshot is the persisted book state. Sides are in exchange priority
// order, so feeding them back through Reload reproduces the book.
type Snapshot struct {
	Sequence uint64            `json:"sequence"`
	Time     time.Time         `json:"time"`
	Bids     []book.BookRecord `json:"bids"`
	Asks     []book.BookRecord `json:"asks"`
}

type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func keyFor(instrument string) []byte {
	return []byte("snapshot/" + instrument)
}

// Save persists the snapshot durably; the write is synced so a crash
// right after Save still warm-starts from it.
func (s *Store) Save(instrument string, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Set(keyFor(instrument), payload, pebble.Sync)
}

// Load returns the snapshot for instrument. ok is false when none has
// been saved yet.
func (s *Store) Load(instrument string) (Snapshot, bool, error) {
	val, closer, err := s.db.Get(keyFor(instrument))
	if errors.Is(err, pebble.ErrNotFound) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	defer closer.Close()

	var snap Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// Delete removes the snapshot for instrument, e.g. after an operator
// decides the persisted state is unusable.
func (s *Store) Delete(instrument string) error {
	return s.db.Delete(keyFor(instrument), pebble.Sync)
}
