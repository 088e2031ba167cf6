// Package metrics exposes Prometheus collectors for the resolver service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemeta_fetch_requests_total",
			Help: "Total logical fetches, labeled by outcome (ok, terminal, exhausted).",
		},
		[]string{"outcome"},
	)

	fetchRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moviemeta_fetch_retries_total",
			Help: "Total fetch attempts beyond the first.",
		},
	)

	searchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemeta_searches_total",
			Help: "Total search strategy runs, labeled by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)

	fieldFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemeta_parse_field_rules_total",
			Help: "Detail-page extraction rule hits, labeled by field and rule.",
		},
		[]string{"field", "rule"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moviemeta_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviemeta_http_requests_total",
			Help: "Total inbound HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)
)

// Handler returns an http.Handler exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch increments the logical fetch counter.
func ObserveFetch(outcome string) {
	fetchRequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetchRetry increments the retry counter.
func ObserveFetchRetry() {
	fetchRetriesTotal.Inc()
}

// ObserveSearch records one search strategy run.
func ObserveSearch(strategy, outcome string) {
	searchesTotal.WithLabelValues(strategy, outcome).Inc()
}

// ObserveFieldRule records which extraction rule produced a field.
func ObserveFieldRule(field, rule string) {
	fieldFallbacksTotal.WithLabelValues(field, rule).Inc()
}

// ObserveHTTPRequest records an inbound request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
