// Package ws carries the real-time room protocol over WebSocket. Frames are
// JSON text messages of the form {"event": name, "data": payload}.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-verification-room/internal/application/chat"
	"github.com/go-verification-room/internal/pkg/metrics"
	"github.com/gorilla/websocket"
)

type Options struct {
	AllowedOrigins  []string
	MaxMessageBytes int64
	EventsPerSecond float64
	EventsBurst     int
}

// Handler upgrades requests and runs one read and one write goroutine per
// connection.
type Handler struct {
	hub      *chat.Hub
	opts     Options
	log      *slog.Logger
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	conns map[*conn]struct{}
}

func NewHandler(hub *chat.Hub, opts Options, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 16 << 10
	}
	if opts.EventsPerSecond <= 0 {
		opts.EventsPerSecond = 20
	}
	if opts.EventsBurst <= 0 {
		opts.EventsBurst = 40
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		hub:    hub,
		opts:   opts,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[*conn]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.Debug("upgrade failed", "error", err)
		return
	}
	c := newConn(ws, h.hub, h.opts, h.log)
	if !h.track(c) {
		_ = ws.Close()
		return
	}
	metrics.ConnectionOpened()
	defer func() {
		h.untrack(c)
		metrics.ConnectionClosed()
	}()

	go c.writePump()
	c.readPump(h.ctx, h.opts.MaxMessageBytes)
}

// Close disconnects every live connection and refuses new ones.
func (h *Handler) Close() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.close()
	}
}

func (h *Handler) track(c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ctx.Err() != nil {
		return false
	}
	h.conns[c] = struct{}{}
	return true
}

func (h *Handler) untrack(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		allowed = strings.TrimSpace(allowed)
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
