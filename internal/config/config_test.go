package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "5000", cfg.AppPort)
	assert.Equal(t, StoreDynamo, cfg.StoreBackend)
	assert.Equal(t, 8*time.Second, cfg.RoomCreateTimeout)
	assert.Equal(t, 5*time.Second, cfg.RoomReadTimeout)
	assert.Equal(t, time.Second, cfg.TypingTimeout)
	assert.Equal(t, EventBusNone, cfg.EventBus)
	assert.Equal(t, "room_messages", cfg.DynamoTables.Messages)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("CLIENT_URL", "https://app.example.com/")
	t.Setenv("STORE_BACKEND", StoreBadger)
	t.Setenv("ROOM_CREATE_TIMEOUT", "2s")
	t.Setenv("TYPING_TIMEOUT", "250ms")
	t.Setenv("NOTIFY_WORKERS", "4")
	t.Setenv("WS_EVENTS_PER_SECOND", "2.5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.com,https://b.com")

	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "https://app.example.com", cfg.ClientURL)
	assert.Equal(t, StoreBadger, cfg.StoreBackend)
	assert.Equal(t, 2*time.Second, cfg.RoomCreateTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.TypingTimeout)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.InDelta(t, 2.5, cfg.WSEventsPerSecond, 0.0001)
	assert.Equal(t, []string{"https://a.com", "https://b.com"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("NOTIFY_QUEUE_SIZE", "lots")
	t.Setenv("ROOM_READ_TIMEOUT", "-3s")
	t.Setenv("MESSAGE_WRITE_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 256, cfg.NotifyQueueSize)
	assert.Equal(t, 5*time.Second, cfg.RoomReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.MessageWriteTimeout)
}
