// Package metrics holds the Prometheus collectors shared by the CLI and the
// web server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SearchesTotal counts searches by domain, dispatch mode and outcome.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fmasearch_searches_total",
			Help: "Total number of searches",
		},
		[]string{"domain", "mode", "status"},
	)
	// SearchDuration is the backend latency of similarity and text searches.
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fmasearch_search_duration_seconds",
			Help:    "Search request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"domain", "mode"},
	)
	// LookupsTotal counts per-hit metadata lookups by outcome.
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fmasearch_metadata_lookups_total",
			Help: "Total number of per-hit metadata lookups",
		},
		[]string{"status"},
	)
	// PredicatesSkipped counts upload searches whose metadata predicate was
	// dropped.
	PredicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fmasearch_predicates_skipped_total",
			Help: "Upload searches whose metadata predicate was not forwarded",
		},
	)
	// StaleResponses counts responses discarded because a newer search
	// had started.
	StaleResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fmasearch_stale_responses_total",
			Help: "Search responses discarded as stale",
		},
	)
	// RequestTotal counts web requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fmasearch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	// RequestDuration is the latency of web requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fmasearch_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
