package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search and history Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Contact searches by structured filter status",
		},
		[]string{"filter_status"},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of contacts returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	SnapshotCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_snapshot_cache_total",
			Help:      "Contact snapshot cache hits and misses",
		},
		[]string{"result"}, // hit / miss
	)

	HistoryOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_operations_total",
			Help:      "Search history operations by outcome",
		},
		[]string{"op", "status"}, // op: get / add / clear / suggest; status: ok / degraded
	)

	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by rate limiting",
		},
		[]string{"source"}, // local / upstream
	)
)

var searchOnce sync.Once

// RegisterSearchMetrics registers the search metrics. Safe to call more than once.
func RegisterSearchMetrics() {
	searchOnce.Do(func() {
		prometheus.MustRegister(
			SearchRequestsTotal,
			SearchResults,
			SnapshotCacheTotal,
			HistoryOperationsTotal,
			RateLimitedTotal,
		)
	})
}
