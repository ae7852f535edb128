// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "serverbot"

var (
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates handled, by handler and outcome.",
		},
		[]string{"handler", "outcome"},
	)

	updateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time spent handling a Telegram update.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	deniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "denied_updates_total",
			Help:      "Updates rejected before routing, by reason.",
		},
		[]string{"reason"},
	)

	sessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Conversational session lifecycle events.",
		},
		[]string{"kind", "event"},
	)

	llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Chat completion requests, by status.",
		},
		[]string{"status"},
	)

	llmDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Chat completion latency.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Ingest API requests.",
		},
		[]string{"method", "route", "status"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Ingest API request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	samplesIngested = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_ingested_total",
			Help:      "Metric samples stored through the ingest API.",
		},
	)

	registerOnce sync.Once
)

// Register adds all collectors to the default registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			updatesTotal,
			updateDuration,
			deniedTotal,
			sessionEvents,
			llmRequests,
			llmDuration,
			apiRequests,
			apiDuration,
			samplesIngested,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveUpdate records a handled update.
func ObserveUpdate(handler, outcome string, took time.Duration) {
	if handler == "" {
		handler = "unknown"
	}
	updatesTotal.WithLabelValues(handler, outcome).Inc()
	updateDuration.WithLabelValues(handler).Observe(took.Seconds())
}

// Denied counts an update dropped by access control or rate limiting.
func Denied(reason string) {
	deniedTotal.WithLabelValues(reason).Inc()
}

// SessionEvent counts wizard and analytics lifecycle transitions
// (kind is "wizard" or "analytics").
func SessionEvent(kind, event string) {
	sessionEvents.WithLabelValues(kind, event).Inc()
}

// ObserveLLM records one completion call.
func ObserveLLM(err error, took time.Duration) {
	status := "ok"
	if err != nil {
		status = "fail"
	}
	llmRequests.WithLabelValues(status).Inc()
	llmDuration.Observe(took.Seconds())
}

// ObserveAPI records one ingest API request.
func ObserveAPI(method, route, status string, took time.Duration) {
	apiRequests.WithLabelValues(method, route, status).Inc()
	apiDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// SampleIngested counts a stored metric sample.
func SampleIngested() {
	samplesIngested.Inc()
}
