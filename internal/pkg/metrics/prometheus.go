// Package metrics provides Prometheus metrics for the verification room engine.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "verification"

// Custom registry to keep the exposition limited to engine metrics.
var registry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide metrics registry

var factory = promauto.With(registry) //nolint:gochecknoglobals

var (
	roomsCreated = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "rooms", Name: "created_total",
		Help: "Verification rooms created.",
	})
	roomCreateFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "rooms", Name: "create_failures_total",
		Help: "Room creations that failed, by error kind.",
	}, []string{"kind"})
	messagesAppended = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "messages", Name: "appended_total",
		Help: "Messages appended to room histories.",
	}, []string{"system"})
	writeRetries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "storage", Name: "write_retries_total",
		Help: "Optimistic writes retried after a concurrent writer won.",
	}, []string{"backend"})
	storageTimeouts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "storage", Name: "timeouts_total",
		Help: "Bounded storage calls that exceeded their budget.",
	}, []string{"op"})
	activeSessions = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "presence", Name: "sessions",
		Help: "Live room sessions.",
	})
	openConnections = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "realtime", Name: "connections",
		Help: "Open real-time connections.",
	})
	droppedEvents = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "realtime", Name: "rate_limited_events_total",
		Help: "Inbound events dropped by the per-connection rate limiter.",
	})
	notifications = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "notifications", Name: "sent_total",
		Help: "Notification attempts by kind and outcome.",
	}, []string{"kind", "outcome"})
	notificationQueue = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "notifications", Name: "queue_size",
		Help: "Notification tasks waiting for a worker.",
	})
)

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

func RecordRoomCreated() { roomsCreated.Inc() }

func RecordRoomCreateFailure(kind string) { roomCreateFailures.WithLabelValues(kind).Inc() }

func RecordMessageAppended(system bool) {
	messagesAppended.WithLabelValues(strconv.FormatBool(system)).Inc()
}

func RecordWriteRetry(backend string) { writeRetries.WithLabelValues(backend).Inc() }

func RecordStorageTimeout(op string) { storageTimeouts.WithLabelValues(op).Inc() }

func SessionOpened() { activeSessions.Inc() }

func SessionClosed() { activeSessions.Dec() }

func ConnectionOpened() { openConnections.Inc() }

func ConnectionClosed() { openConnections.Dec() }

func RecordRateLimitedEvent() { droppedEvents.Inc() }

// RecordNotification counts one delivery attempt; outcome is "sent", "failed" or "dropped".
func RecordNotification(kind, outcome string) {
	notifications.WithLabelValues(kind, outcome).Inc()
}

func UpdateNotificationQueue(size int) { notificationQueue.Set(float64(size)) }
