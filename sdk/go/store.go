package jvsdk

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// Store keys. Lists and the leaderboard are snapshots that go stale;
// the session and token survive restarts indefinitely.
const (
	keySession     = "session"
	keyToken       = "token"
	keyComplaints  = "complaints"
	keyLeaderboard = "leaderboard"
	keyRoster      = "roster"
)

const snapshotMaxAge = 5 * time.Minute

// Store is the durable local cache backing offline reads and session
// restore. Every write is best-effort: a broken store degrades the client
// to network-only, it never fails an operation.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

type storeEnvelope struct {
	CapturedAt time.Time       `json:"capturedAt"`
	Payload    json.RawMessage `json:"payload"`
}

// OpenStore opens (or creates) the durable store at dir.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WriteEntry stores v wrapped in a capture-time envelope. Errors are
// swallowed.
func (s *Store) WriteEntry(key string, v any) {
	if s == nil || s.db == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	data, err := json.Marshal(storeEnvelope{CapturedAt: s.now(), Payload: payload})
	if err != nil {
		return
	}
	_ = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// ReadEntry loads key into v. maxAge <= 0 means no expiry. An entry older
// than maxAge is deleted and reported absent.
func (s *Store) ReadEntry(key string, maxAge time.Duration, v any) bool {
	if s == nil || s.db == nil {
		return false
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return false
	}
	var env storeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.Remove(key)
		return false
	}
	if maxAge > 0 && s.now().Sub(env.CapturedAt) > maxAge {
		s.Remove(key)
		return false
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		s.Remove(key)
		return false
	}
	return true
}

// Remove deletes key. Errors are swallowed.
func (s *Store) Remove(key string) {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Clear drops every entry. Used on logout.
func (s *Store) Clear() {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.DropAll()
}
