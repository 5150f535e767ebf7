package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	backendSQL   = "sql"
	backendRedis = "redis"
)

var (
	// RowsStored tracks records persisted by Store
	RowsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dav_pagecache_rows_stored_total",
			Help: "Total number of result rows stored in the page cache",
		},
		[]string{"backend"}, // "sql", "redis"
	)

	// RowsServed tracks records returned by Get
	RowsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dav_pagecache_rows_served_total",
			Help: "Total number of result rows served from the page cache",
		},
		[]string{"backend"},
	)

	// Misses tracks Get calls that returned no rows
	Misses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dav_pagecache_misses_total",
			Help: "Total number of page cache lookups that returned no rows",
		},
		[]string{"backend"},
	)

	// Errors tracks cache operation errors
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dav_pagecache_errors_total",
			Help: "Total number of page cache operation errors",
		},
		[]string{"backend", "operation"}, // "store", "get", "exists", "decode", "cleanup", "clear", "discard"
	)

	// CleanupDeleted tracks rows removed by the expiry sweep
	CleanupDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dav_pagecache_cleanup_deleted_total",
			Help: "Total number of expired rows deleted from the page cache",
		},
		[]string{"backend"},
	)
)
