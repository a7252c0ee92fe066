package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BundlesComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tearsheet_bundles_computed_total",
			Help: "Total number of metrics bundles computed",
		},
		[]string{"mode", "benchmark"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tearsheet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tearsheet_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tearsheet_cache_lookups_total",
			Help: "Bundle cache lookups by result",
		},
		[]string{"result"}, // hit | miss | error
	)

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tearsheet_job_runs_total",
			Help: "Scheduled job executions by outcome",
		},
		[]string{"job", "status"},
	)
)
