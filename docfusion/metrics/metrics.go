// Package metrics holds the Prometheus collectors of the connector.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ScansTotal counts table scans by outcome.
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docfusion_scans_total",
			Help: "Total number of document table scans",
		},
		[]string{"status"},
	)
	// ScanDuration is the latency of a scan, connection acquisition included.
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docfusion_scan_duration_seconds",
			Help:    "Document table scan latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	ScanRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docfusion_scan_rows_total",
			Help: "Total number of rows decoded by scans",
		},
	)
	// FiltersTotal counts filters by pushdown decision.
	FiltersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docfusion_filters_total",
			Help: "Filters seen by the connector, by pushdown decision",
		},
		[]string{"decision"},
	)
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docfusion_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"result"},
	)
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docfusion_query_duration_seconds",
			Help:    "End to end query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cached"},
	)
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docfusion_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
