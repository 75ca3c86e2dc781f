// Package natsbus publishes room events on a NATS subject.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-verification-room/internal/domain"
	"github.com/nats-io/nats.go"
)

type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

type Publisher struct {
	conn    conn
	subject string
	log     *slog.Logger
}

func Connect(url, subject string, log *slog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("verification-room"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("connected to NATS", "url", url, "subject", subject)
	return &Publisher{conn: nc, subject: subject, log: log}, nil
}

// PublishRoomCreated sends the event and waits for the server to acknowledge
// the flush, bounded by ctx.
func (p *Publisher) PublishRoomCreated(ctx context.Context, evt domain.RoomCreated) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal room.created: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish room.created: %w", err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush room.created: %w", err)
	}
	p.log.Debug("room.created published", "room_id", evt.RoomID, "subject", p.subject)
	return nil
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		p.log.Info("NATS connection closed")
	}
}
