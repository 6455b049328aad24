package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itradebook_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itradebook_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Report pipeline metrics
	ReportRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itradebook_report_request_duration_seconds",
			Help:    "Daily P&L report assembly duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"window"}, // current_month, past_month
	)

	LiveCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itradebook_live_cache_hits_total",
			Help: "Live window cache hits",
		},
	)

	LiveCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itradebook_live_cache_misses_total",
			Help: "Live window cache misses",
		},
	)

	BackfillDaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itradebook_backfill_days_total",
			Help: "Days materialized by the backfill path",
		},
		[]string{"outcome"}, // stored, skipped, failed
	)

	SnapshotRowsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "itradebook_snapshot_rows",
			Help: "Number of daily P&L snapshot rows",
		},
	)

	RebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itradebook_rebuilds_total",
			Help: "Full snapshot rebuilds",
		},
		[]string{"outcome"}, // completed, failed, locked
	)

	// System metrics
	DatabaseConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "itradebook_database_connections",
			Help: "Number of database connections",
		},
		[]string{"state"}, // open, idle, in_use
	)
)
