// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AnnotationsCreated counts annotations created from selections.
	AnnotationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "closereader_annotations_created_total",
		Help: "Annotations created from text selections",
	})

	// GateSubmissions counts checkpoint answers by outcome.
	GateSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "closereader_gate_submissions_total",
		Help: "Checkpoint answers by outcome",
	}, []string{"outcome"})

	// SyncJobs counts finished sync jobs by operation and outcome.
	SyncJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "closereader_sync_jobs_total",
		Help: "Remote sync jobs by operation and outcome",
	}, []string{"op", "outcome"})

	// SyncDuration tracks remote call latency.
	SyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "closereader_sync_duration_seconds",
		Help:    "Remote persistence call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"op"})

	// SyncQueueDepth is the number of sync jobs waiting for a worker.
	SyncQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "closereader_sync_queue_depth",
		Help: "Sync jobs waiting for a worker",
	})

	// OutboxReplayed counts deferred jobs delivered by outbox replay.
	OutboxReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "closereader_outbox_replayed_total",
		Help: "Deferred sync jobs delivered on replay",
	})

	// Workspaces is the number of live per-user workspaces.
	Workspaces = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "closereader_workspaces",
		Help: "Live per-user workspaces",
	})

	// HTTPRequests counts API requests by route pattern and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "closereader_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
