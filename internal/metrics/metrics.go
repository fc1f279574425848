// Package metrics exposes Prometheus collectors for the discovery service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	discoveryAttemptsTotal      *prometheus.CounterVec
	discoverySuccessTotal       *prometheus.CounterVec
	signalsScoredTotal          *prometheus.CounterVec
	fetchDurationSeconds        *prometheus.HistogramVec
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec
	circuitState                *prometheus.GaugeVec
	enrichmentPassesTotal       *prometheus.CounterVec
	leadEventsByStatus          *prometheus.GaugeVec
	dispatchOutcomesTotal       *prometheus.CounterVec
	politenessDelaySeconds      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		discoveryAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_discovery_attempts_total",
				Help: "Total discovery attempts, labeled by engine and layer.",
			},
			[]string{"engine", "layer"},
		)

		discoverySuccessTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_discovery_success_total",
				Help: "Total successful discoveries, labeled by engine and source.",
			},
			[]string{"engine", "source"},
		)

		signalsScoredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_signals_scored_total",
				Help: "Total signals scored, labeled by category and qualification.",
			},
			[]string{"category", "qualified"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadscout_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by outcome.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"outcome"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		circuitState = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "leadscout_circuit_open",
				Help: "Circuit breaker state per dependency (1 = open).",
			},
			[]string{"dependency"},
		)

		enrichmentPassesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_enrichment_passes_total",
				Help: "Total enrichment passes over lead events, labeled by result.",
			},
			[]string{"result"},
		)

		leadEventsByStatus = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "leadscout_lead_events",
				Help: "Lead events observed in the last batch, labeled by status.",
			},
			[]string{"status"},
		)

		dispatchOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_dispatch_outcomes_total",
				Help: "Outbound dispatch outcomes.",
			},
			[]string{"outcome"},
		)

		politenessDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadscout_politeness_delay_seconds",
				Help:    "Histogram of politeness/rate-limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"dependency"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDiscoveryAttempt increments the attempt counter for an engine layer.
func ObserveDiscoveryAttempt(engine, layer string) {
	discoveryAttemptsTotal.WithLabelValues(engine, layer).Inc()
}

// ObserveDiscoverySuccess increments the success counter for an engine source.
func ObserveDiscoverySuccess(engine, source string) {
	discoverySuccessTotal.WithLabelValues(engine, source).Inc()
}

// ObserveSignalScored records one scored signal.
func ObserveSignalScored(category string, qualified bool) {
	signalsScoredTotal.WithLabelValues(category, strconv.FormatBool(qualified)).Inc()
}

// ObserveFetch records a page fetch latency by outcome.
func ObserveFetch(outcome string, duration time.Duration) {
	fetchDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetCircuitOpen records whether a dependency's breaker is open.
func SetCircuitOpen(dependency string, open bool) {
	v := 0.0
	if open {
		v = 1.0
	}
	circuitState.WithLabelValues(dependency).Set(v)
}

// ObserveEnrichmentPass increments the pass counter for the given result.
func ObserveEnrichmentPass(result string) {
	enrichmentPassesTotal.WithLabelValues(result).Inc()
}

// SetLeadEvents records the batch population for a lifecycle status.
func SetLeadEvents(status string, count int) {
	leadEventsByStatus.WithLabelValues(status).Set(float64(count))
}

// ObserveDispatch increments the outbound dispatch outcome counter.
func ObserveDispatch(outcome string) {
	dispatchOutcomesTotal.WithLabelValues(outcome).Inc()
}

// ObservePolitenessDelay records the duration of a rate limit wait.
func ObservePolitenessDelay(dependency string, duration time.Duration) {
	politenessDelaySeconds.WithLabelValues(dependency).Observe(duration.Seconds())
}
