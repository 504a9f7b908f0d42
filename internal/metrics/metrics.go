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
	discoveriesTotal     *prometheus.CounterVec
	webhookEventsTotal   *prometheus.CounterVec
	contentUploadsTotal  *prometheus.CounterVec
	sweepsTotal          *prometheus.CounterVec
	sweepDurationSeconds *prometheus.HistogramVec

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDurationSecs *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		discoveriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandscan_discoveries_total",
				Help: "Total discovery pipeline invocations, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		webhookEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandscan_webhook_events_total",
				Help: "Total webhook events processed, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		contentUploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandscan_content_uploads_total",
				Help: "Total content objects uploaded, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		sweepsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandscan_sweeps_total",
				Help: "Total reconciliation passes, labeled by pass and outcome.",
			},
			[]string{"pass", "outcome"},
		)

		sweepDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brandscan_sweep_duration_seconds",
				Help:    "Histogram of reconciliation pass durations.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"pass"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brandscan_http_requests_total",
				Help: "Total HTTP requests, labeled by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		)

		httpRequestDurationSecs = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brandscan_http_request_duration_seconds",
				Help:    "Histogram of HTTP request durations by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDiscovery increments the discovery counter for the given outcome.
func ObserveDiscovery(outcome string) {
	if discoveriesTotal != nil {
		discoveriesTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveWebhookEvent increments the webhook event counter.
func ObserveWebhookEvent(kind, outcome string) {
	if webhookEventsTotal != nil {
		webhookEventsTotal.WithLabelValues(kind, outcome).Inc()
	}
}

// ObserveContentUpload increments the upload counter.
func ObserveContentUpload(outcome string) {
	if contentUploadsTotal != nil {
		contentUploadsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if httpRequestDurationSecs != nil {
		httpRequestDurationSecs.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}

// ObserveSweep records one reconciliation pass.
func ObserveSweep(pass, outcome string, duration time.Duration) {
	if sweepsTotal != nil {
		sweepsTotal.WithLabelValues(pass, outcome).Inc()
	}
	if sweepDurationSeconds != nil {
		sweepDurationSeconds.WithLabelValues(pass).Observe(duration.Seconds())
	}
}
