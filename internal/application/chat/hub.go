// Package chat implements the real-time protocol of a verification room:
// joining, history replay, sending and typing. It is transport agnostic; the
// ws package feeds it decoded requests.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-verification-room/internal/application/presence"
	"github.com/go-verification-room/internal/domain"
	"github.com/go-verification-room/internal/pkg/deadline"
	"github.com/go-verification-room/internal/pkg/metrics"
)

type roomStore interface {
	FindRoom(ctx context.Context, roomID string) (*domain.Room, error)
	ListMessages(ctx context.Context, roomID string) ([]domain.Message, error)
	AppendMessage(ctx context.Context, roomID string, msg *domain.Message) error
	MarkJoined(ctx context.Context, roomID string, role domain.Role, at time.Time) (bool, error)
}

type HubDeps struct {
	Store        roomStore
	Registry     *presence.Registry
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *slog.Logger
	Clock        func() time.Time
}

// Hub serializes joins and sends per room so that a joiner's history replay
// and its registration for broadcasts happen with no append in between.
type Hub struct {
	store        roomStore
	registry     *presence.Registry
	locks        *roomLocks
	readTimeout  time.Duration
	writeTimeout time.Duration
	log          *slog.Logger
	now          func() time.Time
}

func NewHub(deps HubDeps) *Hub {
	h := &Hub{
		store:        deps.Store,
		registry:     deps.Registry,
		locks:        newRoomLocks(),
		readTimeout:  deps.ReadTimeout,
		writeTimeout: deps.WriteTimeout,
		log:          deps.Logger,
		now:          deps.Clock,
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	if h.now == nil {
		h.now = func() time.Time { return time.Now().UTC() }
	}
	return h
}

// Join registers sink as req.User in the room, replays the history to it and
// announces the join to every member, the joiner included.
func (h *Hub) Join(ctx context.Context, sink presence.Sink, req JoinRequest) (presence.Session, error) {
	roomID := strings.TrimSpace(req.RoomID)
	role := req.User.Role
	if roomID == "" {
		return presence.Session{}, fmt.Errorf("roomId is required: %w", domain.ErrValidation)
	}
	if !role.Valid() {
		return presence.Session{}, fmt.Errorf("role %q is not a room role: %w", role, domain.ErrValidation)
	}

	connID := sink.ID()
	unlock := h.locks.Lock(roomID)
	defer unlock()

	room, err := deadline.Call(ctx, "find_room", h.readTimeout, func(ctx context.Context) (*domain.Room, error) {
		return h.store.FindRoom(ctx, roomID)
	})
	if err != nil {
		return presence.Session{}, err
	}
	if holder, ok := h.registry.Holder(roomID, role); ok && holder.ConnID != connID {
		return presence.Session{}, fmt.Errorf("%s is already connected to room %s: %w", role, roomID, domain.ErrConflict)
	}

	slot := room.Participants.Slot(role)
	participant := domain.Sender{
		Name:  firstNonEmpty(req.User.Name, slot.Name),
		Email: firstNonEmpty(req.User.Email, slot.Email),
		Role:  role,
	}
	now := h.now()

	joined, err := h.append(ctx, roomID, domain.Message{
		Sender:            domain.SystemSender,
		Body:              domain.JoinedText(participant.Name, role),
		ServerTimestamp:   now,
		IsSystemGenerated: true,
	})
	if err != nil {
		return presence.Session{}, err
	}

	history, err := deadline.Call(ctx, "list_messages", h.readTimeout, func(ctx context.Context) ([]domain.Message, error) {
		return h.store.ListMessages(ctx, roomID)
	})
	if err != nil {
		return presence.Session{}, err
	}

	// The old session is only given up once the new one is certain.
	if prev, ok := h.registry.Session(connID); ok && (prev.RoomID != roomID || prev.Participant.Role != role) {
		h.Leave(connID)
	}
	session, err := h.registry.Join(roomID, participant, sink)
	if err != nil {
		return presence.Session{}, err
	}

	if _, err := deadline.Call(ctx, "mark_joined", h.writeTimeout, func(ctx context.Context) (bool, error) {
		return h.store.MarkJoined(ctx, roomID, role, now)
	}); err != nil {
		h.registry.Leave(connID)
		return presence.Session{}, err
	}
	sink.Send(domain.Event{Name: domain.EventLoadMessages, Data: history})

	ts := joined.ServerTimestamp
	h.registry.Broadcast(roomID, domain.Event{
		Name: domain.EventUserJoined,
		Data: domain.PresenceNotice{User: participant.Name, Role: role, Timestamp: &ts},
	}, "")

	h.log.Info("participant joined", "room_id", roomID, "role", role, "conn_id", connID)
	return session, nil
}

// Send appends a message from the connection's participant and delivers it to
// every member, the sender included. Blank messages are dropped silently.
func (h *Hub) Send(ctx context.Context, connID string, req SendRequest) (*domain.Message, error) {
	body := strings.TrimSpace(req.Message)
	if body == "" {
		return nil, nil
	}
	session, ok := h.registry.Session(connID)
	if !ok {
		return nil, fmt.Errorf("join a room before sending: %w", domain.ErrNotJoined)
	}
	if req.RoomID != "" && req.RoomID != session.RoomID {
		return nil, fmt.Errorf("connection is joined to another room: %w", domain.ErrNotJoined)
	}

	unlock := h.locks.Lock(session.RoomID)
	defer unlock()

	msg, err := h.append(ctx, session.RoomID, domain.Message{
		Sender:          session.Participant,
		Body:            body,
		ServerTimestamp: h.now(),
	})
	if err != nil {
		return nil, err
	}
	h.registry.Broadcast(session.RoomID, domain.Event{Name: domain.EventReceiveMessage, Data: msg}, "")
	return &msg, nil
}

// Session reports the room session currently bound to connID.
func (h *Hub) Session(connID string) (presence.Session, bool) {
	return h.registry.Session(connID)
}

// Typing and StopTyping are ignored for connections that have not joined.
func (h *Hub) Typing(connID string) {
	h.registry.StartTyping(connID)
}

func (h *Hub) StopTyping(connID string) {
	h.registry.StopTyping(connID)
}

// Leave drops the connection's session and tells the remaining members.
// The departure is not persisted.
func (h *Hub) Leave(connID string) {
	session, ok := h.registry.Leave(connID)
	if !ok {
		return
	}
	ts := h.now()
	h.registry.Broadcast(session.RoomID, domain.Event{
		Name: domain.EventUserLeft,
		Data: domain.PresenceNotice{User: session.Participant.Name, Role: session.Participant.Role, Timestamp: &ts},
	}, connID)
	h.log.Info("participant left", "room_id", session.RoomID, "role", session.Participant.Role, "conn_id", connID)
}

// append stores a copy of msg under the write budget and returns the stored
// message. The copy keeps an abandoned store call from racing the caller.
func (h *Hub) append(ctx context.Context, roomID string, msg domain.Message) (domain.Message, error) {
	stored, err := deadline.Call(ctx, "append_message", h.writeTimeout, func(ctx context.Context) (domain.Message, error) {
		m := msg
		err := h.store.AppendMessage(ctx, roomID, &m)
		return m, err
	})
	if err != nil {
		return domain.Message{}, err
	}
	metrics.RecordMessageAppended(stored.IsSystemGenerated)
	return stored, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
