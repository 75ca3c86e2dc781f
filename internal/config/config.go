package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreDynamo = "dynamo"
	StoreBadger = "badger"
)

// Event bus backends for room.created events.
const (
	EventBusNone = "none"
	EventBusSNS  = "sns"
	EventBusNATS = "nats"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string
	// ClientURL is the web front end base URL; chat links point below it.
	ClientURL string

	StoreBackend   string
	BadgerPath     string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	RoomCreateTimeout   time.Duration
	RoomReadTimeout     time.Duration
	MessageWriteTimeout time.Duration
	TypingTimeout       time.Duration

	NotifyWorkers     int
	NotifyQueueSize   int
	NotifySendTimeout time.Duration
	EventBus          string
	SNSRegion         string
	SNSTopicARN       string
	NATSURL           string
	NATSSubject       string

	S3BucketName     string
	TranscriptURLTTL time.Duration

	JWTPublicKeyPath string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	AllowedOrigins    []string // CORS allowed origins
	WSMaxMessageBytes int64
	WSEventsPerSecond float64
	WSEventsBurst     int
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Candidates string
	Rooms      string
	Messages   string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:   getEnv("APP_PORT", "5000"),
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		ClientURL: strings.TrimRight(getEnv("CLIENT_URL", "http://localhost:5173"), "/"),

		StoreBackend:   getEnv("STORE_BACKEND", StoreDynamo),
		BadgerPath:     getEnv("BADGER_PATH", "./data/rooms"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Candidates: getEnv("DYNAMO_TABLE_CANDIDATES", "candidates"),
			Rooms:      getEnv("DYNAMO_TABLE_ROOMS", "verification_rooms"),
			Messages:   getEnv("DYNAMO_TABLE_MESSAGES", "room_messages"),
		},

		RoomCreateTimeout:   getEnvDuration("ROOM_CREATE_TIMEOUT", 8*time.Second),
		RoomReadTimeout:     getEnvDuration("ROOM_READ_TIMEOUT", 5*time.Second),
		MessageWriteTimeout: getEnvDuration("MESSAGE_WRITE_TIMEOUT", 5*time.Second),
		TypingTimeout:       getEnvDuration("TYPING_TIMEOUT", time.Second),

		NotifyWorkers:     getEnvInt("NOTIFY_WORKERS", 2),
		NotifyQueueSize:   getEnvInt("NOTIFY_QUEUE_SIZE", 256),
		NotifySendTimeout: getEnvDuration("NOTIFY_SEND_TIMEOUT", 30*time.Second),
		EventBus:          getEnv("EVENT_BUS", EventBusNone),
		SNSRegion:         getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:       getEnv("SNS_TOPIC_ARN", ""),
		NATSURL:           getEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject:       getEnv("NATS_SUBJECT", "verification.room.created"),

		S3BucketName:     getEnv("S3_BUCKET_NAME", "verification-transcripts"),
		TranscriptURLTTL: getEnvDuration("TRANSCRIPT_URL_TTL", 15*time.Minute),

		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", ""),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		WSMaxMessageBytes: int64(getEnvInt("WS_MAX_MESSAGE_BYTES", 16<<10)),
		WSEventsPerSecond: getEnvFloat("WS_EVENTS_PER_SECOND", 20),
		WSEventsBurst:     getEnvInt("WS_EVENTS_BURST", 40),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("8s", "500ms").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
