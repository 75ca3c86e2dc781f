// Package badgerstore is the embedded room store backed by BadgerDB. It serves
// single-node deployments and tests without an AWS endpoint.
//
// Key layout:
//
//	cand:{candidateId}                          candidate JSON
//	room:{roomId}                               room JSON (no messages)
//	msg:{roomId}:{seq %020d}                    message JSON
//	recruiter:{email}:{unixnano %019d}:{candId} empty, lists candidates by recruiter
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-verification-room/internal/domain"
	"github.com/go-verification-room/internal/pkg/metrics"
)

const maxTxnAttempts = 64

type Store struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens (or creates) a Badger database at path. An empty path opens an
// in-memory database.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return New(db), nil
}

func New(db *badger.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return fmt.Errorf("badger closed: %w", domain.ErrUnavailable)
	}
	return nil
}

// roomRecord is the persisted shape of a room. Messages are stored under
// their own keys.
type roomRecord struct {
	RoomID        string              `json:"room_id"`
	CandidateID   string              `json:"candidate_id"`
	Participants  domain.Participants `json:"participants"`
	Status        string              `json:"status"`
	MessageCount  int64               `json:"message_count"`
	LastMessageAt time.Time           `json:"last_message_at"`
	CreatedAt     time.Time           `json:"created_at"`
}

func toRecord(r *domain.Room) roomRecord {
	return roomRecord{
		RoomID:        r.RoomID,
		CandidateID:   r.CandidateID,
		Participants:  r.Participants,
		Status:        r.Status,
		MessageCount:  r.MessageCount,
		LastMessageAt: r.LastMessageAt,
		CreatedAt:     r.CreatedAt,
	}
}

func (rec roomRecord) toRoom() *domain.Room {
	return &domain.Room{
		RoomID:        rec.RoomID,
		CandidateID:   rec.CandidateID,
		Participants:  rec.Participants,
		Status:        rec.Status,
		MessageCount:  rec.MessageCount,
		LastMessageAt: rec.LastMessageAt,
		CreatedAt:     rec.CreatedAt,
		Messages:      []domain.Message{},
	}
}

func candidateKey(id string) []byte { return []byte("cand:" + id) }

func roomKey(id string) []byte { return []byte("room:" + id) }

func messagePrefix(roomID string) []byte { return []byte("msg:" + roomID + ":") }

func messageKey(roomID string, seq int64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%020d", roomID, seq))
}

func recruiterPrefix(email string) []byte { return []byte("recruiter:" + email + ":") }

func recruiterKey(email string, createdAt time.Time, candidateID string) []byte {
	return []byte(fmt.Sprintf("recruiter:%s:%019d:%s", email, createdAt.UnixNano(), candidateID))
}

// update runs fn in a read-write transaction, retrying when a concurrent
// transaction committed a conflicting write first.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return unavailable(err)
		}
		metrics.RecordWriteRetry("badger")
	}
	return fmt.Errorf("too many concurrent writers: %w", domain.ErrConflict)
}

func (s *Store) view(fn func(txn *badger.Txn) error) error {
	return unavailable(s.db.View(fn))
}

// unavailable marks errors of a closed database so callers can tell an
// outage from a failed operation.
func unavailable(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return fmt.Errorf("%v: %w", err, domain.ErrUnavailable)
	}
	return err
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}
