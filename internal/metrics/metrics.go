// Package metrics exposes Prometheus collectors for the gateway.
//
//	metrics.Uploads.WithLabelValues("image").Inc()
//	r.Handle("/metrics", metrics.Handler())
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCounter counts HTTP requests by method, route pattern and status.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration observes HTTP request latency.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Uploads counts accepted uploads by kind (image, audio).
	Uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Total number of accepted uploads",
		},
		[]string{"kind"},
	)

	// UploadBytes sums the payload size of accepted uploads.
	UploadBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_bytes_total",
			Help: "Total bytes of accepted uploads",
		},
		[]string{"kind"},
	)

	// Deletions counts deletion attempts by result (ok, unauthorized, error).
	Deletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deletions_total",
			Help: "Total number of deletion attempts",
		},
		[]string{"result"},
	)

	// OrphanedFiles counts files written whose metadata row was never committed.
	OrphanedFiles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orphaned_files_total",
			Help: "Files left on storage after a failed metadata insert",
		},
	)

	// WebhookFailures counts failed preserve notifications.
	WebhookFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_failures_total",
			Help: "Total number of failed webhook notifications",
		},
	)

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RequestCounter,
		RequestDuration,
		Uploads,
		UploadBytes,
		Deletions,
		OrphanedFiles,
		WebhookFailures,
	)
}

// Registry returns the registry all collectors are registered with.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
