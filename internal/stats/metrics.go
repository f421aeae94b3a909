package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	recomputes    prometheus.Counter
	errors        prometheus.Counter
	invalidations prometheus.Counter
}

// newMetrics builds the cache counters. A nil registerer leaves them
// unregistered, which keeps independent caches in tests from colliding.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "inventory_stats_cache_hits_total",
			Help: "Stats requests served from the in-memory snapshot.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "inventory_stats_cache_misses_total",
			Help: "Stats lookups that found no fresh snapshot and started a recomputation.",
		}),
		recomputes: factory.NewCounter(prometheus.CounterOpts{
			Name: "inventory_stats_cache_recomputes_total",
			Help: "Reads of the item collection issued by the stats cache.",
		}),
		errors: factory.NewCounter(prometheus.CounterOpts{
			Name: "inventory_stats_cache_read_errors_total",
			Help: "Recomputations that failed to read the item collection.",
		}),
		invalidations: factory.NewCounter(prometheus.CounterOpts{
			Name: "inventory_stats_cache_invalidations_total",
			Help: "Explicit invalidations of the stats snapshot.",
		}),
	}
}
