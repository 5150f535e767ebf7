// Package metrics serves the Prometheus metrics of the pagination server.
// Collectors are defined with promauto in the packages that update them
// (cache, paginate, client) to keep those packages independent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all collectors are created on.
var Registry = prometheus.DefaultRegisterer

// Gatherer is read by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler exposes the collectors in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry, promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Metrics Documentation
//
// Page Cache Metrics (pkg/cache):
//   - dav_pagecache_rows_stored_total{backend} (Counter): Records written to result sets
//   - dav_pagecache_rows_served_total{backend} (Counter): Records read back for pages
//   - dav_pagecache_misses_total{backend} (Counter): Page reads that found no rows
//   - dav_pagecache_errors_total{backend, operation} (Counter): Backend and decode failures
//   - dav_pagecache_cleanup_deleted_total{backend} (Counter): Expired rows removed by the sweep
//
// Pagination Metrics (pkg/paginate):
//   - dav_pagination_requests_total{state} (Counter): Requests by mode (initiate, fetch, unknown_token)
//   - dav_pagination_store_duration_seconds (Histogram): Time to enumerate and store a listing
//   - dav_pagination_result_set_records (Histogram): Size of stored result sets
//
// Client Metrics (pkg/client):
//   - dav_client_requests_total{kind, status} (Counter): PROPFIND requests by kind and status
//   - dav_client_request_duration_seconds{kind} (Histogram): Request duration
//   - dav_client_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - dav_client_retries_total{error_class} (Counter): Retry attempts
//   - dav_client_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - dav_client_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// Example Prometheus Queries:
//
//   # Follow-up pages served per second
//   rate(dav_pagination_requests_total{state="fetch"}[5m])
//
//   # Unknown token rate (expired or foreign tokens)
//   rate(dav_pagination_requests_total{state="unknown_token"}[5m])
//
//   # P95 store latency
//   histogram_quantile(0.95, rate(dav_pagination_store_duration_seconds_bucket[5m]))
//
//   # Cache backend errors
//   sum by (backend, operation) (rate(dav_pagecache_errors_total[5m]))
