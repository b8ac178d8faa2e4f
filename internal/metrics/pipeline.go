package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "prodscout"

// Search pipeline Prometheus metrics.
var (
	// IndexRequestDuration observes one backend call, retries included.
	IndexRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_request_duration_seconds",
			Help:      "Index backend call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend", "outcome"},
	)

	IndexRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_retries_total",
			Help:      "Rate-limited index calls that were retried",
		},
		[]string{"backend"},
	)

	// SnapshotCacheTotal counts session cache operations by op (put/get/delete)
	// and result (ok/miss/error).
	SnapshotCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_total",
			Help:      "Session snapshot cache operations",
		},
		[]string{"op", "result"},
	)

	CatalogLookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_lookup_total",
			Help:      "Catalog enrichment outcomes per hit",
		},
		[]string{"result"}, // "resolved" / "unresolved" / "error"
	)
)

var pipelineOnce sync.Once

// RegisterPipelineMetrics registers the search pipeline metrics. Call once from main.
func RegisterPipelineMetrics() {
	pipelineOnce.Do(func() {
		prometheus.MustRegister(
			IndexRequestDuration,
			IndexRetriesTotal,
			SnapshotCacheTotal,
			CatalogLookupTotal,
		)
	})
}
