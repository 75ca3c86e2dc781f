// Package presence tracks which connections are live in which room and the
// ephemeral typing state of each. Nothing here is persisted.
package presence

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-verification-room/internal/domain"
	"github.com/go-verification-room/internal/pkg/metrics"
)

// ErrClosed is returned by Join after Close.
var ErrClosed = errors.New("presence registry closed")

const defaultTypingTimeout = time.Second

// Sink receives events for one connection. Send must not block; it reports
// false when the event could not be queued.
type Sink interface {
	ID() string
	Send(evt domain.Event) bool
}

// Session binds one live connection to a room and a participant.
type Session struct {
	ConnID      string
	RoomID      string
	Participant domain.Sender
	JoinedAt    time.Time
}

type entry struct {
	session Session
	sink    Sink
	// typing is non-nil while the participant is typing; typingGen
	// invalidates timers that fired after being replaced.
	typing    *time.Timer
	typingGen uint64
}

// Registry is safe for concurrent use. Events are fanned out outside the lock.
type Registry struct {
	mu            sync.RWMutex
	conns         map[string]*entry
	rooms         map[string]map[string]*entry
	typingTimeout time.Duration
	now           func() time.Time
	closed        bool
}

type Option func(*Registry)

// WithTypingTimeout sets the inactivity period after which typing stops.
func WithTypingTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.typingTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		conns:         make(map[string]*entry),
		rooms:         make(map[string]map[string]*entry),
		typingTimeout: defaultTypingTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Join registers sink in roomID as participant. Joining again with the same
// connection replaces its previous session. A role already held by another
// live connection in the room is refused with domain.ErrConflict.
func (r *Registry) Join(roomID string, participant domain.Sender, sink Sink) (Session, error) {
	connID := sink.ID()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Session{}, ErrClosed
	}
	for id, e := range r.rooms[roomID] {
		if id != connID && e.session.Participant.Role == participant.Role {
			return Session{}, fmt.Errorf("role %s in room %s is held by another connection: %w",
				participant.Role, roomID, domain.ErrConflict)
		}
	}

	if prev, ok := r.conns[connID]; ok {
		r.detach(prev)
	} else {
		metrics.SessionOpened()
	}

	e := &entry{
		session: Session{ConnID: connID, RoomID: roomID, Participant: participant, JoinedAt: r.now()},
		sink:    sink,
	}
	r.conns[connID] = e
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]*entry)
		r.rooms[roomID] = members
	}
	members[connID] = e
	return e.session, nil
}

// Leave removes the connection's session. If it was typing, the rest of the
// room is told it stopped.
func (r *Registry) Leave(connID string) (Session, bool) {
	r.mu.Lock()
	e, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return Session{}, false
	}
	wasTyping := e.typing != nil
	r.detach(e)
	delete(r.conns, connID)
	r.mu.Unlock()

	metrics.SessionClosed()
	if wasTyping {
		r.Broadcast(e.session.RoomID, typingEvent(domain.EventUserStopTyping, e.session), connID)
	}
	return e.session, true
}

// detach unlinks e from its room and cancels its typing timer. Caller holds mu.
func (r *Registry) detach(e *entry) {
	r.clearTyping(e)
	members := r.rooms[e.session.RoomID]
	delete(members, e.session.ConnID)
	if len(members) == 0 {
		delete(r.rooms, e.session.RoomID)
	}
}

func (r *Registry) clearTyping(e *entry) {
	if e.typing != nil {
		e.typing.Stop()
		e.typing = nil
	}
	e.typingGen++
}

func (r *Registry) Session(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok {
		return Session{}, false
	}
	return e.session, true
}

// Holder returns the session currently holding role in roomID.
func (r *Registry) Holder(roomID string, role domain.Role) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.rooms[roomID] {
		if e.session.Participant.Role == role {
			return e.session, true
		}
	}
	return Session{}, false
}

// Members returns the live sessions of a room, oldest first.
func (r *Registry) Members(roomID string) []Session {
	r.mu.RLock()
	out := make([]Session, 0, len(r.rooms[roomID]))
	for _, e := range r.rooms[roomID] {
		out = append(out, e.session)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ConnID < out[j].ConnID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// Broadcast sends evt to every live session of roomID except excludeConnID
// (empty excludes nobody) and returns how many sinks accepted it.
func (r *Registry) Broadcast(roomID string, evt domain.Event, excludeConnID string) int {
	r.mu.RLock()
	sinks := make([]Sink, 0, len(r.rooms[roomID]))
	for id, e := range r.rooms[roomID] {
		if id != excludeConnID {
			sinks = append(sinks, e.sink)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, s := range sinks {
		if s.Send(evt) {
			delivered++
		}
	}
	return delivered
}

// StartTyping marks the connection as typing, tells the rest of the room and
// (re)arms the inactivity timer. It reports false for unknown connections.
func (r *Registry) StartTyping(connID string) bool {
	r.mu.Lock()
	e, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.clearTyping(e)
	gen := e.typingGen
	e.typing = time.AfterFunc(r.typingTimeout, func() { r.expireTyping(connID, gen) })
	session := e.session
	r.mu.Unlock()

	r.Broadcast(session.RoomID, typingEvent(domain.EventUserTyping, session), connID)
	return true
}

// StopTyping clears the typing state. The room is only told when the
// connection was actually typing.
func (r *Registry) StopTyping(connID string) bool {
	r.mu.Lock()
	e, ok := r.conns[connID]
	if !ok || e.typing == nil {
		r.mu.Unlock()
		return false
	}
	r.clearTyping(e)
	session := e.session
	r.mu.Unlock()

	r.Broadcast(session.RoomID, typingEvent(domain.EventUserStopTyping, session), connID)
	return true
}

func (r *Registry) expireTyping(connID string, gen uint64) {
	r.mu.Lock()
	e, ok := r.conns[connID]
	if !ok || e.typing == nil || e.typingGen != gen {
		r.mu.Unlock()
		return
	}
	e.typing = nil
	e.typingGen++
	session := e.session
	r.mu.Unlock()

	r.Broadcast(session.RoomID, typingEvent(domain.EventUserStopTyping, session), connID)
}

func (r *Registry) IsTyping(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	return ok && e.typing != nil
}

// Close drops every session and stops all typing timers. Later joins fail
// with ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for _, e := range r.conns {
		r.clearTyping(e)
		metrics.SessionClosed()
	}
	r.conns = make(map[string]*entry)
	r.rooms = make(map[string]map[string]*entry)
}

func typingEvent(name string, s Session) domain.Event {
	return domain.Event{
		Name: name,
		Data: domain.PresenceNotice{User: s.Participant.Name, Role: s.Participant.Role},
	}
}
