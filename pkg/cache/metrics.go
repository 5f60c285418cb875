package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks loads that found an entry, by backend ("file", "redis").
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapi_page_cache_hits_total",
			Help: "Total number of page cache loads that found an entry",
		},
		[]string{"backend"},
	)

	// CacheMisses tracks loads that found no entry.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapi_page_cache_misses_total",
			Help: "Total number of page cache loads without an entry",
		},
		[]string{"backend"},
	)

	// CacheSize tracks the size of the last entry read or written.
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swapi_page_cache_size_bytes",
			Help: "Size of the last page cache entry read or written",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks store failures.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapi_page_cache_errors_total",
			Help: "Total number of page cache operation errors",
		},
		[]string{"backend", "operation"}, // "load", "save"
	)
)
