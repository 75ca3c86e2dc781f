package badgerstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-verification-room/internal/domain"
)

// CreateRoom stores the candidate, its room and the recruiter index entry in
// one transaction. Existing keys are never overwritten.
func (s *Store) CreateRoom(ctx context.Context, c *domain.Candidate, room *domain.Room) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		for _, key := range [][]byte{candidateKey(c.CandidateID), roomKey(room.RoomID)} {
			found, err := exists(txn, key)
			if err != nil {
				return err
			}
			if found {
				return fmt.Errorf("%s already exists: %w", key, domain.ErrConflict)
			}
		}
		if err := setJSON(txn, candidateKey(c.CandidateID), c); err != nil {
			return err
		}
		if err := setJSON(txn, roomKey(room.RoomID), toRecord(room)); err != nil {
			return err
		}
		return txn.Set(recruiterKey(c.RecruiterEmail, c.CreatedAt, c.CandidateID), nil)
	})
}

func (s *Store) GetCandidate(_ context.Context, candidateID string) (*domain.Candidate, error) {
	var c domain.Candidate
	err := s.view(func(txn *badger.Txn) error {
		return getJSON(txn, candidateKey(candidateID), &c)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("candidate %s: %w", candidateID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCandidatesByRecruiter walks the recruiter index and returns the
// candidates newest first.
func (s *Store) ListCandidatesByRecruiter(_ context.Context, recruiterEmail string) ([]domain.Candidate, error) {
	candidates := []domain.Candidate{}
	err := s.view(func(txn *badger.Txn) error {
		prefix := recruiterPrefix(recruiterEmail)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var ids []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := bytes.TrimPrefix(it.Item().Key(), prefix)
			// rest is "{unixnano}:{candidateId}"
			if i := bytes.IndexByte(rest, ':'); i >= 0 {
				ids = append(ids, string(rest[i+1:]))
			}
		}
		slices.Reverse(ids)

		for _, id := range ids {
			var c domain.Candidate
			if err := getJSON(txn, candidateKey(id), &c); err != nil {
				return fmt.Errorf("candidate %s: %w", id, err)
			}
			candidates = append(candidates, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// FindRoom returns the room with its full message history attached.
func (s *Store) FindRoom(_ context.Context, roomID string) (*domain.Room, error) {
	var room *domain.Room
	err := s.view(func(txn *badger.Txn) error {
		var rec roomRecord
		if err := getJSON(txn, roomKey(roomID), &rec); err != nil {
			return err
		}
		room = rec.toRoom()
		msgs, err := listMessages(txn, roomID)
		if err != nil {
			return err
		}
		room.Messages = msgs
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// MarkJoined sets the joinedAt of a role slot if it is still unset. It reports
// whether this call performed the transition.
func (s *Store) MarkJoined(ctx context.Context, roomID string, role domain.Role, at time.Time) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("unknown role %q: %w", role, domain.ErrValidation)
	}
	var marked bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		marked = false
		var rec roomRecord
		if err := getJSON(txn, roomKey(roomID), &rec); err != nil {
			return err
		}
		slot := rec.Participants.Slot(role)
		if slot.JoinedAt != nil {
			return nil
		}
		joined := at
		slot.JoinedAt = &joined
		marked = true
		return setJSON(txn, roomKey(roomID), rec)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
	}
	return marked, err
}

func listMessages(txn *badger.Txn, roomID string) ([]domain.Message, error) {
	prefix := messagePrefix(roomID)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	msgs := []domain.Message{}
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var m domain.Message
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		}); err != nil {
			return nil, fmt.Errorf("decode %s: %w", it.Item().Key(), err)
		}
		m.RoomID = roomID
		msgs = append(msgs, m)
	}
	return msgs, nil
}
