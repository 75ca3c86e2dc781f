package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-verification-room/internal/application/chat"
	"github.com/go-verification-room/internal/application/notification"
	"github.com/go-verification-room/internal/application/presence"
	"github.com/go-verification-room/internal/application/verification"
	"github.com/go-verification-room/internal/config"
	"github.com/go-verification-room/internal/domain"
	"github.com/go-verification-room/internal/infrastructure/badgerstore"
	"github.com/go-verification-room/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-verification-room/internal/infrastructure/jwt"
	"github.com/go-verification-room/internal/infrastructure/natsbus"
	s3infra "github.com/go-verification-room/internal/infrastructure/s3"
	"github.com/go-verification-room/internal/infrastructure/smtp"
	"github.com/go-verification-room/internal/infrastructure/sns"
	transporthttp "github.com/go-verification-room/internal/transport/http"
	appmiddleware "github.com/go-verification-room/internal/transport/http/middleware"
	"github.com/go-verification-room/internal/transport/ws"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

// roomStore is everything the services need from a storage backend.
type roomStore interface {
	CreateRoom(ctx context.Context, c *domain.Candidate, room *domain.Room) error
	FindRoom(ctx context.Context, roomID string) (*domain.Room, error)
	GetCandidate(ctx context.Context, candidateID string) (*domain.Candidate, error)
	ListCandidatesByRecruiter(ctx context.Context, recruiterEmail string) ([]domain.Candidate, error)
	ListMessages(ctx context.Context, roomID string) ([]domain.Message, error)
	AppendMessage(ctx context.Context, roomID string, msg *domain.Message) error
	MarkJoined(ctx context.Context, roomID string, role domain.Role, at time.Time) (bool, error)
	Ping(ctx context.Context) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})))

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := presence.NewRegistry(presence.WithTypingTimeout(cfg.TypingTimeout))
	defer registry.Close()

	hub := chat.NewHub(chat.HubDeps{
		Store:        store,
		Registry:     registry,
		ReadTimeout:  cfg.RoomReadTimeout,
		WriteTimeout: cfg.MessageWriteTimeout,
		Logger:       slog.Default().With("component", "chat"),
	})

	publisher, closePublisher := openPublisher(ctx, cfg)
	defer closePublisher()

	dispatcher := notification.NewDispatcher(notification.DispatcherDeps{
		Mailer:      smtp.NewMailer(cfg),
		Publisher:   publisher,
		ClientURL:   cfg.ClientURL,
		Workers:     cfg.NotifyWorkers,
		QueueSize:   cfg.NotifyQueueSize,
		SendTimeout: cfg.NotifySendTimeout,
		Logger:      slog.Default().With("component", "notification"),
	})
	dispatcher.Start()

	svcDeps := verification.ServiceDeps{
		Store:         store,
		Notifier:      dispatcher,
		ClientURL:     cfg.ClientURL,
		CreateTimeout: cfg.RoomCreateTimeout,
		ReadTimeout:   cfg.RoomReadTimeout,
		TranscriptTTL: cfg.TranscriptURLTTL,
	}
	// Transcript export is optional.
	if s3Client, err := s3infra.NewClient(ctx, cfg); err == nil {
		svcDeps.Archive = s3infra.NewStore(s3Client, cfg.S3BucketName)
	} else {
		slog.Warn("transcript export disabled", "error", err)
	}

	var verifier *jwtinfra.Verifier
	if cfg.JWTPublicKeyPath != "" {
		verifier, err = jwtinfra.NewVerifier(cfg.JWTPublicKeyPath)
		if err != nil {
			return fmt.Errorf("load JWT public key: %w", err)
		}
	}

	// 5 requests/second, burst of 10 per client IP.
	submitLimiter := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	defer submitLimiter.Close()

	socket := ws.NewHandler(hub, ws.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		MaxMessageBytes: cfg.WSMaxMessageBytes,
		EventsPerSecond: cfg.WSEventsPerSecond,
		EventsBurst:     cfg.WSEventsBurst,
	}, slog.Default().With("component", "ws"))

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Verification:  verification.NewService(svcDeps),
		Store:         store,
		Socket:        socket,
		Verifier:      verifier,
		SubmitLimiter: submitLimiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	socket.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		slog.Warn("notification queue not drained", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (roomStore, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreBadger:
		store, err := badgerstore.Open(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using badger store", "path", cfg.BadgerPath)
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Error("close badger store", "error", err)
			}
		}, nil
	case config.StoreDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		// Creates the tables if they don't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return dynamo.NewStore(client, cfg.DynamoTables), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

// openPublisher returns nil when no event bus is configured or reachable;
// room events are best effort.
func openPublisher(ctx context.Context, cfg *config.Config) (notification.EventPublisher, func()) {
	noop := func() {}
	switch cfg.EventBus {
	case config.EventBusSNS:
		p, err := sns.NewPublisher(ctx, cfg)
		if err != nil {
			slog.Warn("SNS publisher not available", "error", err)
			return nil, noop
		}
		return p, noop
	case config.EventBusNATS:
		p, err := natsbus.Connect(cfg.NATSURL, cfg.NATSSubject, slog.Default().With("component", "nats"))
		if err != nil {
			slog.Warn("NATS publisher not available", "error", err)
			return nil, noop
		}
		return p, p.Close
	}
	return nil, noop
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
