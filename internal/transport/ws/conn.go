package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-verification-room/internal/application/chat"
	"github.com/go-verification-room/internal/domain"
	"github.com/go-verification-room/internal/pkg/id"
	"github.com/go-verification-room/internal/pkg/metrics"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

type connState int

const (
	stateDisconnected connState = iota
	stateJoining
	stateJoined
)

func (s connState) String() string {
	switch s {
	case stateJoining:
		return "joining"
	case stateJoined:
		return "joined"
	}
	return "disconnected"
}

// conn is one client connection. The read loop owns state; everything else
// talks to the writer through send.
type conn struct {
	id      string
	ws      *websocket.Conn
	hub     *chat.Hub
	log     *slog.Logger
	limiter *rate.Limiter

	send      chan domain.Event
	done      chan struct{}
	closeOnce sync.Once

	state connState
}

func newConn(ws *websocket.Conn, hub *chat.Hub, opts Options, log *slog.Logger) *conn {
	connID := id.New()
	return &conn{
		id:      connID,
		ws:      ws,
		hub:     hub,
		log:     log.With("conn_id", connID),
		limiter: rate.NewLimiter(rate.Limit(opts.EventsPerSecond), opts.EventsBurst),
		send:    make(chan domain.Event, sendBuffer),
		done:    make(chan struct{}),
	}
}

func (c *conn) ID() string { return c.id }

// Send queues evt without blocking. A consumer whose buffer is full is
// disconnected.
func (c *conn) Send(evt domain.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- evt:
		return true
	default:
		c.log.Warn("outbound buffer full, dropping connection")
		c.close()
		return false
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// readPump decodes client frames and dispatches them until the connection
// fails or is closed. It leaves the room on the way out.
func (c *conn) readPump(ctx context.Context, maxMessageBytes int64) {
	defer func() {
		c.hub.Leave(c.id)
		c.state = stateDisconnected
		c.close()
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}
		if !c.limiter.Allow() {
			metrics.RecordRateLimitedEvent()
			continue
		}
		var frame inbound
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.Send(errorEvent("", fmt.Errorf("malformed frame: %w", domain.ErrValidation)))
			continue
		}
		c.dispatch(ctx, frame)
	}
}

func (c *conn) dispatch(ctx context.Context, frame inbound) {
	switch frame.Event {
	case domain.EventJoinRoom:
		var req chat.JoinRequest
		if !c.decode(frame, &req) {
			return
		}
		c.state = stateJoining
		_, err := c.hub.Join(ctx, c, req)
		c.state = c.currentState()
		if err != nil {
			c.log.Info("join rejected", "room_id", req.RoomID, "role", req.User.Role, "error", err)
			c.Send(errorEvent(frame.Event, err))
		}

	case domain.EventSendMessage:
		var req chat.SendRequest
		if !c.decode(frame, &req) {
			return
		}
		if _, err := c.hub.Send(ctx, c.id, req); err != nil {
			c.Send(errorEvent(frame.Event, err))
		}

	case domain.EventTyping, domain.EventStopTyping:
		if c.state != stateJoined {
			return
		}
		if frame.Event == domain.EventTyping {
			c.hub.Typing(c.id)
		} else {
			c.hub.StopTyping(c.id)
		}

	default:
		c.Send(errorEvent(frame.Event, fmt.Errorf("unknown event %q: %w", frame.Event, domain.ErrValidation)))
	}
}

func (c *conn) decode(frame inbound, v any) bool {
	if len(frame.Data) == 0 {
		c.Send(errorEvent(frame.Event, fmt.Errorf("missing data: %w", domain.ErrValidation)))
		return false
	}
	if err := json.Unmarshal(frame.Data, v); err != nil {
		c.Send(errorEvent(frame.Event, fmt.Errorf("malformed data: %w", domain.ErrValidation)))
		return false
	}
	return true
}

// currentState re-reads membership after a join attempt; a failed rejoin to
// another room leaves the connection outside any room.
func (c *conn) currentState() connState {
	if _, ok := c.hub.Session(c.id); ok {
		return stateJoined
	}
	return stateDisconnected
}

// writePump serializes events onto the socket and keeps it alive with pings.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case evt := <-c.send:
			if err := c.write(evt); err != nil {
				c.log.Debug("write failed", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *conn) write(evt domain.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}
