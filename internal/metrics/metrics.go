// Package metrics defines the Prometheus instrumentation for the pattern
// analysis service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tpb",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "handler", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tpb",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"method", "handler"},
	)

	// Analysis metrics
	analysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tpb",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "End-to-end analysis run duration",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~160s
		},
	)

	analysisOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tpb",
			Subsystem: "analysis",
			Name:      "task_outcomes_total",
			Help:      "Terminal states of per-pattern analysis tasks",
		},
		[]string{"pattern_type", "state"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tpb",
			Subsystem: "analysis",
			Name:      "cache_lookups_total",
			Help:      "Analysis cache lookups by result",
		},
		[]string{"result"},
	)

	// Model metrics
	modelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tpb",
			Subsystem: "model",
			Name:      "calls_total",
			Help:      "Generative model calls by result",
		},
		[]string{"result"},
	)

	modelCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tpb",
			Subsystem: "model",
			Name:      "call_duration_seconds",
			Help:      "Generative model call duration",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
	)

	// Dataset metrics
	datasetSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tpb",
			Subsystem: "dataset",
			Name:      "transactions",
			Help:      "Number of transactions in the loaded dataset",
		},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, handler, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, handler, status).Inc()
	httpRequestDuration.WithLabelValues(method, handler).Observe(duration.Seconds())
}

// RecordAnalysisRun records the duration of one full analysis.
func RecordAnalysisRun(duration time.Duration) {
	analysisDuration.Observe(duration.Seconds())
}

// RecordTaskOutcome records the terminal state of one per-type task.
func RecordTaskOutcome(patternType, state string) {
	analysisOutcomes.WithLabelValues(patternType, state).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
	} else {
		cacheLookups.WithLabelValues("miss").Inc()
	}
}

// RecordModelCall records one model call outcome.
func RecordModelCall(result string, duration time.Duration) {
	modelCalls.WithLabelValues(result).Inc()
	modelCallDuration.Observe(duration.Seconds())
}

// SetDatasetSize updates the loaded dataset gauge.
func SetDatasetSize(n int) {
	datasetSize.Set(float64(n))
}

// StatusCodeClass returns the status code class (2xx, 3xx, 4xx, 5xx).
func StatusCodeClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
