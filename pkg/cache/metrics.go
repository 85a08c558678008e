package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks fresh cache hits.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_cache_hits_total",
			Help: "Total number of fresh cache hits",
		},
	)

	// CacheMisses tracks cache misses, including stale entries rejected on read.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheEntries tracks the current number of stored entries.
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "proxy_cache_entries",
			Help: "Current number of cache entries",
		},
	)

	// CacheSweepRemoved tracks entries reclaimed by the periodic sweep.
	CacheSweepRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_cache_sweep_removed_total",
			Help: "Total number of expired entries removed by the sweep",
		},
	)

	// CacheClears tracks manual full clears.
	CacheClears = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_cache_clears_total",
			Help: "Total number of manual cache clears",
		},
	)
)
