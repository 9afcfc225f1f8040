// Package metrics exposes Prometheus collectors for the artifact service.
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
	artifactsSavedTotal        *prometheus.CounterVec
	resolutionsTotal           *prometheus.CounterVec
	validationRunsTotal        *prometheus.CounterVec
	sandboxDurationSeconds     prometheus.Histogram
	fetchPromotionsTotal       prometheus.Counter
	storageOperationsTotal     *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		artifactsSavedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrapervault_artifacts_saved_total",
				Help: "Total scraper artifacts persisted, labeled by scraper type.",
			},
			[]string{"type"},
		)

		resolutionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrapervault_resolutions_total",
				Help: "Total artifact lookups, labeled by outcome (exact, pattern, miss).",
			},
			[]string{"outcome"},
		)

		validationRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrapervault_validation_runs_total",
				Help: "Total sandbox validation runs, labeled by verdict.",
			},
			[]string{"verdict"},
		)

		sandboxDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scrapervault_sandbox_duration_seconds",
				Help:    "Histogram of sandboxed execution wall times.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		)

		fetchPromotionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scrapervault_fetch_promotions_total",
				Help: "Total static fetches promoted to a headless browser.",
			},
		)

		storageOperationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrapervault_storage_operations_total",
				Help: "Total storage operations, labeled by tier, op and outcome.",
			},
			[]string{"tier", "op", "outcome"},
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
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveArtifactSaved increments the saved-artifact counter.
func ObserveArtifactSaved(scraperType string) {
	artifactsSavedTotal.WithLabelValues(scraperType).Inc()
}

// ObserveResolution increments the lookup counter for the given outcome.
func ObserveResolution(outcome string) {
	resolutionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveValidation records a completed sandbox run.
func ObserveValidation(verdict string, duration time.Duration) {
	validationRunsTotal.WithLabelValues(verdict).Inc()
	sandboxDurationSeconds.Observe(duration.Seconds())
}

// ObserveFetchPromotion increments the headless promotion counter.
func ObserveFetchPromotion() {
	fetchPromotionsTotal.Inc()
}

// ObserveStorageOperation increments the per-tier storage counter.
func ObserveStorageOperation(tier, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storageOperationsTotal.WithLabelValues(tier, op, outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
