package http

import (
	"context"
	"net/http"

	"github.com/go-verification-room/internal/application/verification"
	jwtinfra "github.com/go-verification-room/internal/infrastructure/jwt"
	appmiddleware "github.com/go-verification-room/internal/transport/http/middleware"
)

// StorePinger is the readiness check the router requires from the room store.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Deps holds the application services and infrastructure the router serves.
type Deps struct {
	Verification verification.Service
	Store        StorePinger
	// Socket serves the real-time protocol at /socket.
	Socket http.Handler
	// Verifier is optional; when nil the recruiter list is public.
	Verifier *jwtinfra.Verifier
	// SubmitLimiter is optional; when nil submissions are not rate limited.
	SubmitLimiter *appmiddleware.RateLimiter
}
