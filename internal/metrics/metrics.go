package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventstatus_upstream_requests_total",
		Help: "Total number of calls to the events API, labelled by operation and outcome.",
	}, []string{"operation", "outcome"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventstatus_upstream_request_duration_ms",
		Help:    "Events API round-trip latency in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"operation"})

	GridRowsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eventstatus_grid_rows_returned",
		Help:    "Grouped rows per grid response.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})

	Deletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventstatus_deletes_total",
		Help: "Delete requests handled, labelled by result (invalid_id, rejected, error, deleted).",
	}, []string{"result"})

	ConfigReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventstatus_config_reloads_total",
		Help: "Config reload attempts, labelled by result.",
	}, []string{"result"})
)
