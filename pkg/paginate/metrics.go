package paginate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Requests tracks listing requests by pagination state
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dav_pagination_requests_total",
			Help: "Total number of listing requests by pagination state",
		},
		[]string{"state"}, // "unpaginated", "initiate", "fetch", "unknown_token"
	)

	// StoreDuration tracks how long storing a full result set takes
	StoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dav_pagination_store_duration_seconds",
			Help:    "Time to enumerate and store a complete result set",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ResultSetSize tracks the number of records per stored result set
	ResultSetSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dav_pagination_result_set_records",
			Help:    "Number of records in stored result sets",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8), // 10 .. ~164k
		},
	)
)
