// Package metrics provides Prometheus metrics for the planned API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRunsTotal tracks completed sync runs by service, operation and status
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planned",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of sync runs by status",
		},
		[]string{"tenant_id", "service", "operation", "status"},
	)

	// SyncRunDuration tracks sync run duration in seconds
	SyncRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "planned",
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Duration of sync runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"tenant_id", "service", "operation"},
	)

	// SyncItemsTotal tracks processed remote records by outcome
	SyncItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planned",
			Subsystem: "sync",
			Name:      "items_total",
			Help:      "Total number of remote records processed by outcome",
		},
		[]string{"service", "operation", "outcome"},
	)

	// ConflictsDetectedTotal tracks absence conflicts recorded
	ConflictsDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planned",
			Subsystem: "sync",
			Name:      "conflicts_detected_total",
			Help:      "Total number of absence conflicts recorded",
		},
		[]string{"tenant_id"},
	)

	// HTTPRequestsTotal tracks outbound HTTP requests to the external services
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planned",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"service", "method", "status_code"},
	)

	// HTTPRequestDuration tracks outbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "planned",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method"},
	)
)
