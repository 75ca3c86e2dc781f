// Package verification owns the lifecycle of verification rooms: creation from
// a candidate submission, lookup, listing and transcript export.
package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-verification-room/internal/domain"
	"github.com/go-verification-room/internal/pkg/deadline"
	"github.com/go-verification-room/internal/pkg/id"
	"github.com/go-verification-room/internal/pkg/metrics"
	"github.com/go-verification-room/internal/pkg/validate"
)

// Per-recipient email status reported to the submitter.
const (
	EmailSending = "sending"
	EmailSkipped = "skipped"
)

type EmailStatus struct {
	Employer  string `json:"employer"`
	Candidate string `json:"candidate"`
}

type CreateRoomResult struct {
	CandidateID string      `json:"candidateId"`
	RoomID      string      `json:"roomId"`
	ChatLink    string      `json:"chatLink"`
	EmailStatus EmailStatus `json:"emailStatus"`
}

type Transcript struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service interface {
	CreateRoom(ctx context.Context, req domain.SubmitCandidateRequest) (*CreateRoomResult, error)
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	ListByRecruiter(ctx context.Context, recruiterEmail string) ([]domain.Candidate, error)
	ExportTranscript(ctx context.Context, roomID string) (*Transcript, error)
}

type roomStore interface {
	CreateRoom(ctx context.Context, c *domain.Candidate, room *domain.Room) error
	FindRoom(ctx context.Context, roomID string) (*domain.Room, error)
	GetCandidate(ctx context.Context, candidateID string) (*domain.Candidate, error)
	ListCandidatesByRecruiter(ctx context.Context, recruiterEmail string) ([]domain.Candidate, error)
}

type notifier interface {
	Notify(room *domain.Room, candidate *domain.Candidate) bool
}

type transcriptArchive interface {
	PutTranscript(ctx context.Context, key string, body []byte) error
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type service struct {
	store         roomStore
	notifier      notifier
	archive       transcriptArchive
	clientURL     string
	createTimeout time.Duration
	readTimeout   time.Duration
	transcriptTTL time.Duration
	now           func() time.Time
}

type ServiceDeps struct {
	Store         roomStore
	Notifier      notifier
	Archive       transcriptArchive // optional, nil disables transcript export
	ClientURL     string
	CreateTimeout time.Duration
	ReadTimeout   time.Duration
	TranscriptTTL time.Duration
	Clock         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:         deps.Store,
		notifier:      deps.Notifier,
		archive:       deps.Archive,
		clientURL:     deps.ClientURL,
		createTimeout: deps.CreateTimeout,
		readTimeout:   deps.ReadTimeout,
		transcriptTTL: deps.TranscriptTTL,
		now:           deps.Clock,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.transcriptTTL <= 0 {
		s.transcriptTTL = 15 * time.Minute
	}
	return s
}

func (s *service) CreateRoom(ctx context.Context, req domain.SubmitCandidateRequest) (*CreateRoomResult, error) {
	req = trimRequest(req)
	if err := validate.Struct(req); err != nil {
		metrics.RecordRoomCreateFailure("validation")
		return nil, err
	}

	now := s.now()
	c := &domain.Candidate{
		CandidateID:    id.New(),
		Name:           req.Name,
		Email:          req.Email,
		Skills:         req.Skills,
		Experience:     req.Experience,
		EmployerEmail:  req.EmployerEmail,
		RecruiterEmail: req.RecruiterEmail,
		RoomID:         id.NewRoomID(),
		Status:         domain.CandidateStatusPending,
		CreatedAt:      now,
	}
	room := domain.NewRoom(c.RoomID, c, now)

	// The store gets its own copies: after a timeout the write may still be
	// running in the background.
	candCopy, roomCopy := *c, *room
	if err := deadline.Do(ctx, "create_room", s.createTimeout, func(ctx context.Context) error {
		return s.store.CreateRoom(ctx, &candCopy, &roomCopy)
	}); err != nil {
		metrics.RecordRoomCreateFailure(failureKind(err))
		return nil, err
	}
	metrics.RecordRoomCreated()

	status := EmailStatus{Employer: EmailSkipped, Candidate: EmailSkipped}
	if s.notifier != nil && s.notifier.Notify(room, c) {
		status = EmailStatus{Employer: EmailSending, Candidate: EmailSending}
	}

	return &CreateRoomResult{
		CandidateID: c.CandidateID,
		RoomID:      room.RoomID,
		ChatLink:    domain.ChatLink(s.clientURL, room.RoomID),
		EmailStatus: status,
	}, nil
}

// GetRoom returns the room with its history and candidate. Both reads share
// one budget.
func (s *service) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, fmt.Errorf("roomId is required: %w", domain.ErrValidation)
	}
	return deadline.Call(ctx, "get_room", s.readTimeout, func(ctx context.Context) (*domain.Room, error) {
		room, err := s.store.FindRoom(ctx, roomID)
		if err != nil {
			return nil, err
		}
		c, err := s.store.GetCandidate(ctx, room.CandidateID)
		switch {
		case err == nil:
			room.Candidate = c
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		return room, nil
	})
}

func (s *service) ListByRecruiter(ctx context.Context, recruiterEmail string) ([]domain.Candidate, error) {
	recruiterEmail = strings.TrimSpace(recruiterEmail)
	if recruiterEmail == "" {
		return nil, fmt.Errorf("recruiterEmail is required: %w", domain.ErrValidation)
	}
	return deadline.Call(ctx, "list_candidates", s.readTimeout, func(ctx context.Context) ([]domain.Candidate, error) {
		return s.store.ListCandidatesByRecruiter(ctx, recruiterEmail)
	})
}

type transcriptDocument struct {
	RoomID       string              `json:"roomId"`
	CandidateID  string              `json:"candidateId"`
	Participants domain.Participants `json:"participants"`
	ExportedAt   time.Time           `json:"exportedAt"`
	Messages     []domain.Message    `json:"messages"`
}

// ExportTranscript archives the ordered history of a room and returns a
// time-limited download link.
func (s *service) ExportTranscript(ctx context.Context, roomID string) (*Transcript, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("transcript archive not configured: %w", domain.ErrUnavailable)
	}
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	body, err := json.Marshal(transcriptDocument{
		RoomID:       room.RoomID,
		CandidateID:  room.CandidateID,
		Participants: room.Participants,
		ExportedAt:   now,
		Messages:     room.Messages,
	})
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}

	key := fmt.Sprintf("transcripts/%s/%s.json", room.RoomID, id.New())
	if err := s.archive.PutTranscript(ctx, key, body); err != nil {
		return nil, fmt.Errorf("store transcript: %w", err)
	}
	url, err := s.archive.PresignedURL(ctx, key, s.transcriptTTL)
	if err != nil {
		return nil, err
	}
	return &Transcript{Key: key, URL: url, ExpiresAt: now.Add(s.transcriptTTL)}, nil
}

func trimRequest(r domain.SubmitCandidateRequest) domain.SubmitCandidateRequest {
	return domain.SubmitCandidateRequest{
		Name:           strings.TrimSpace(r.Name),
		Email:          strings.TrimSpace(r.Email),
		Skills:         strings.TrimSpace(r.Skills),
		Experience:     strings.TrimSpace(r.Experience),
		EmployerEmail:  strings.TrimSpace(r.EmployerEmail),
		RecruiterEmail: strings.TrimSpace(r.RecruiterEmail),
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrStorageTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
