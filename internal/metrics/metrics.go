package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for pulsebot
type Metrics struct {
	// Conversation metrics
	EventsTotal      *prometheus.CounterVec
	AccessDenials    prometheus.Counter
	UnexpectedTokens prometheus.Counter
	SummariesTotal   *prometheus.CounterVec
	AnswersSaved     prometheus.Counter
	ActiveSessions   prometheus.Gauge

	// Tracker metrics
	TrackerRequests        *prometheus.CounterVec
	TrackerRequestDuration *prometheus.HistogramVec
	TrackerQueryFailures   *prometheus.CounterVec

	// Store metrics
	StoreOperations *prometheus.CounterVec

	// Bus metrics
	BusPublished *prometheus.CounterVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			EventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pulsebot_events_total",
					Help: "Total number of inbound chat events by type",
				},
				[]string{"type"},
			),
			AccessDenials: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pulsebot_access_denials_total",
					Help: "Total number of events rejected by the allow-list",
				},
			),
			UnexpectedTokens: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pulsebot_unexpected_tokens_total",
					Help: "Total number of button tokens that matched no action, question, or project",
				},
			),
			SummariesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pulsebot_summaries_total",
					Help: "Total number of project summary views by result",
				},
				[]string{"result"},
			),
			AnswersSaved: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pulsebot_answers_saved_total",
					Help: "Total number of survey answers persisted",
				},
			),
			ActiveSessions: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "pulsebot_active_sessions",
					Help: "Number of operator sessions currently held in memory",
				},
			),
			TrackerRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pulsebot_tracker_requests_total",
					Help: "Total number of tracker API requests",
				},
				[]string{"operation", "success"},
			),
			TrackerRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pulsebot_tracker_request_duration_seconds",
					Help:    "Duration of tracker API requests in seconds",
					Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
				},
				[]string{"operation"},
			),
			TrackerQueryFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pulsebot_tracker_query_failures_total",
					Help: "Total number of aggregation queries that degraded to N/A",
				},
				[]string{"query"},
			),
			StoreOperations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pulsebot_store_operations_total",
					Help: "Total number of survey store operations",
				},
				[]string{"backend", "operation", "result"},
			),
			BusPublished: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pulsebot_bus_published_total",
					Help: "Total number of events published to the message bus",
				},
				[]string{"direction"},
			),
		}
	})
	return sharedMetrics
}
