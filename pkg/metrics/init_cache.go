package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCacheMetrics() {
	r.CacheHitsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opportunity_cache_hits_total",
			Help: "Cache lookups served from a stored or in-flight result",
		},
		[]string{"cache"},
	)

	r.CacheMissesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opportunity_cache_misses_total",
			Help: "Cache lookups that started a computation",
		},
		[]string{"cache"},
	)

	r.CacheEvictionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opportunity_cache_evictions_total",
			Help: "Entries evicted to respect the cache bound",
		},
		[]string{"cache"},
	)

	r.CacheInvalidations = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "opportunity_cache_invalidations_total",
			Help: "Snapshot invalidations by window",
		},
		[]string{"window"},
	)
}
