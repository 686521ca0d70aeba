package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (memory, redis, valkey)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "databox_cache_hits_total",
			Help: "Total number of databox cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses by layer
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "databox_cache_misses_total",
			Help: "Total number of databox cache misses",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "databox_cache_errors_total",
			Help: "Total number of databox cache operation errors",
		},
		[]string{"layer", "operation"}, // "get", "set", "delete"
	)
)
