// Package notification delivers the emails and bus events that follow room
// creation. Delivery runs on a small worker pool behind a bounded queue so the
// creating request never waits for it.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-verification-room/internal/domain"
	"github.com/go-verification-room/internal/pkg/metrics"
)

// ErrShutdownTimeout is returned by Shutdown when workers are still busy at
// the deadline.
var ErrShutdownTimeout = errors.New("notification dispatcher shutdown timed out")

const (
	kindEmployer  = "employer_email"
	kindCandidate = "candidate_email"
	kindEvent     = "room_created_event"
)

// Mailer is the external email collaborator.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, candidateName, chatLink string) error
	SendCandidateNotification(ctx context.Context, to, candidateName, chatLink string) error
}

// EventPublisher announces new rooms on a message bus.
type EventPublisher interface {
	PublishRoomCreated(ctx context.Context, evt domain.RoomCreated) error
}

type task struct {
	room      domain.Room
	candidate domain.Candidate
}

type DispatcherDeps struct {
	Mailer      Mailer
	Publisher   EventPublisher // optional
	ClientURL   string
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
	Logger      *slog.Logger
}

type Dispatcher struct {
	mailer      Mailer
	publisher   EventPublisher
	clientURL   string
	workers     int
	sendTimeout time.Duration
	log         *slog.Logger

	mu     sync.RWMutex
	queue  chan task
	closed bool
	start  sync.Once
	wg     sync.WaitGroup
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	d := &Dispatcher{
		mailer:      deps.Mailer,
		publisher:   deps.Publisher,
		clientURL:   deps.ClientURL,
		workers:     deps.Workers,
		sendTimeout: deps.SendTimeout,
		log:         deps.Logger,
	}
	if d.workers <= 0 {
		d.workers = 1
	}
	size := deps.QueueSize
	if size <= 0 {
		size = 1
	}
	d.queue = make(chan task, size)
	if d.sendTimeout <= 0 {
		d.sendTimeout = 30 * time.Second
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	return d
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.start.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.run()
		}
		d.log.Info("notification workers started", "workers", d.workers, "queue_size", cap(d.queue))
	})
}

// Notify queues the notifications for a new room. It never blocks and
// reports false when the task was refused (queue full or shut down).
func (d *Dispatcher) Notify(room *domain.Room, candidate *domain.Candidate) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- task{room: *room, candidate: *candidate}:
		metrics.UpdateNotificationQueue(len(d.queue))
		return true
	default:
		metrics.RecordNotification(kindEmployer, "dropped")
		metrics.RecordNotification(kindCandidate, "dropped")
		d.log.Warn("notification queue full, dropping task", "room_id", room.RoomID)
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to be delivered.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrShutdownTimeout, ctx.Err())
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for t := range d.queue {
		metrics.UpdateNotificationQueue(len(d.queue))
		d.deliver(t)
	}
}

// deliver sends both emails independently; one failing does not stop the
// other. Failures are logged and counted, never retried.
func (d *Dispatcher) deliver(t task) {
	link := domain.ChatLink(d.clientURL, t.room.RoomID)
	c := t.candidate

	d.attempt(kindEmployer, t.room.RoomID, func(ctx context.Context) error {
		return d.mailer.SendVerificationEmail(ctx, c.EmployerEmail, c.Name, link)
	})
	d.attempt(kindCandidate, t.room.RoomID, func(ctx context.Context) error {
		return d.mailer.SendCandidateNotification(ctx, c.Email, c.Name, link)
	})

	if d.publisher == nil {
		return
	}
	d.attempt(kindEvent, t.room.RoomID, func(ctx context.Context) error {
		return d.publisher.PublishRoomCreated(ctx, domain.RoomCreated{
			RoomID:         t.room.RoomID,
			CandidateID:    c.CandidateID,
			CandidateName:  c.Name,
			ChatLink:       link,
			RecruiterEmail: c.RecruiterEmail,
			CreatedAt:      t.room.CreatedAt,
		})
	})
}

func (d *Dispatcher) attempt(kind, roomID string, send func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := send(ctx); err != nil {
		err = fmt.Errorf("%s for room %s: %v: %w", kind, roomID, err, domain.ErrNotificationFailure)
		metrics.RecordNotification(kind, "failed")
		d.log.Error("notification failed", "kind", kind, "room_id", roomID, "err", err)
		return
	}
	metrics.RecordNotification(kind, "sent")
	d.log.Info("notification sent", "kind", kind, "room_id", roomID)
}
