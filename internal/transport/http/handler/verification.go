package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-verification-room/internal/application/verification"
	"github.com/go-verification-room/internal/domain"
	"github.com/go-verification-room/internal/transport/http/middleware"
)

// VerificationHandler serves the room lifecycle endpoints.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

func (h *VerificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.CreateRoom(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, "Verification room created", res)
}

func (h *VerificationHandler) Room(w http.ResponseWriter, r *http.Request) {
	room, err := h.svc.GetRoom(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, "", room)
}

// List returns the candidates created by a recruiter. An authenticated
// caller always sees its own list regardless of the query string.
func (h *VerificationHandler) List(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("recruiterEmail"))
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok && claims.Email != "" {
		email = claims.Email
	}
	if email == "" {
		writeServiceError(w, r, fmt.Errorf("recruiterEmail is required: %w", domain.ErrValidation))
		return
	}
	candidates, err := h.svc.ListByRecruiter(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, "", candidates)
}

func (h *VerificationHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.ExportTranscript(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, "Transcript exported", TranscriptData{
		URL:       t.URL,
		Key:       t.Key,
		ExpiresAt: t.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
