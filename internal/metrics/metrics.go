package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "utmtrack_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "utmtrack_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Клики
	ClicksRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "utmtrack_clicks_recorded_total",
			Help: "Total number of recorded link clicks",
		},
		[]string{"tracking_type"},
	)

	ConversionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "utmtrack_conversions_recorded_total",
			Help: "Total number of recorded conversion events",
		},
		[]string{"attributed"}, // "true", "false"
	)

	// Пересылка во внешнюю аналитику
	EventsForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "utmtrack_events_forwarded_total",
			Help: "Click and conversion events sent to the analytics provider",
		},
		[]string{"provider", "result"}, // "success", "failure"
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "utmtrack_events_dropped_total",
			Help: "Events dropped before forwarding",
		},
		[]string{"reason"}, // "queue_full", "stopped"
	)

	ForwardQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "utmtrack_forward_queue_length",
			Help: "Current number of events waiting to be forwarded",
		},
	)

	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "utmtrack_analytics_sync_runs_total",
			Help: "Analytics sync runs",
		},
		[]string{"result"},
	)

	SyncedLinks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "utmtrack_analytics_synced_links_total",
			Help: "Links updated with external analytics stats",
		},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "utmtrack_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "utmtrack_circuit_breaker_requests_total",
			Help: "Requests passed through the circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "utmtrack_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// ObserveHTTPRequest записывает завершенный HTTP-запрос
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
