package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-verification-room/internal/domain"
)

// ListMessages returns the room history in seq order.
func (s *Store) ListMessages(_ context.Context, roomID string) ([]domain.Message, error) {
	var msgs []domain.Message
	err := s.view(func(txn *badger.Txn) (err error) {
		msgs, err = listMessages(txn, roomID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// AppendMessage stores msg as the next message of the room and fills in its
// Seq, RoomID and ServerTimestamp. A zero ServerTimestamp means "now".
// Concurrent appends conflict on the room key; the loser retries.
func (s *Store) AppendMessage(ctx context.Context, roomID string, msg *domain.Message) error {
	receivedAt := msg.ServerTimestamp
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	var stored domain.Message
	err := s.update(ctx, func(txn *badger.Txn) error {
		var rec roomRecord
		if err := getJSON(txn, roomKey(roomID), &rec); err != nil {
			return err
		}
		stored = *msg
		stored.RoomID = roomID
		stored.Seq = rec.MessageCount + 1
		stored.ServerTimestamp = domain.NextTimestamp(receivedAt, rec.LastMessageAt)

		rec.MessageCount = stored.Seq
		rec.LastMessageAt = stored.ServerTimestamp
		if err := setJSON(txn, roomKey(roomID), rec); err != nil {
			return err
		}
		return setJSON(txn, messageKey(roomID, stored.Seq), stored)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	*msg = stored
	return nil
}
