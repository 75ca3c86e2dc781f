package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-verification-room/internal/config"
	"github.com/go-verification-room/internal/domain"
	"github.com/go-verification-room/internal/pkg/metrics"
	"github.com/go-verification-room/internal/transport/http/handler"
	appmiddleware "github.com/go-verification-room/internal/transport/http/middleware"
)

const roleAdmin = "admin"

func passthrough(next http.Handler) http.Handler { return next }

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	listMw := []func(http.Handler) http.Handler{passthrough}
	if deps.Verifier != nil {
		listMw = []func(http.Handler) http.Handler{
			appmiddleware.Auth(deps.Verifier),
			appmiddleware.RequireRole(string(domain.RoleRecruiter), roleAdmin),
		}
	}
	submitMw := passthrough
	if deps.SubmitLimiter != nil {
		submitMw = deps.SubmitLimiter.Limit
	}

	healthH := handler.NewHealthHandler(deps.Store)
	verificationH := handler.NewVerificationHandler(deps.Verification)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Check)

		r.Route("/verification", func(r chi.Router) {
			r.With(submitMw).Post("/submit", verificationH.Submit)
			r.Get("/room/{roomId}", verificationH.Room)
			r.Post("/room/{roomId}/transcript", verificationH.Transcript)
			r.With(listMw...).Get("/list", verificationH.List)
		})
	})

	r.Handle("/metrics", metrics.Handler())
	if deps.Socket != nil {
		r.Handle("/socket", deps.Socket)
	}
	return r
}
