// Package metrics documents the Prometheus metrics exported by the events
// proxy. Metrics are defined via promauto in the package that owns them
// (fetcher, cache, enrich) to keep ownership local and avoid circular
// dependencies; this package holds the registry reference and the inventory.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the Prometheus registerer used by the proxy. All metrics are
// registered automatically via promauto in their owning packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Inventory
//
// Upstream request metrics (pkg/fetcher):
//   - proxy_upstream_requests_total{endpoint, status} (Counter): requests by endpoint and HTTP status
//   - proxy_upstream_request_duration_seconds{endpoint} (Histogram): request duration
//   - proxy_upstream_errors_total{class} (Counter): errors by class (retryable, fatal, unknown)
//
// Retry metrics (pkg/fetcher):
//   - proxy_retries_total{error_class} (Counter): retry attempts
//   - proxy_retry_backoff_seconds{error_class} (Histogram): backoff durations
//   - proxy_retry_exhausted_total{error_class} (Counter): exhausted retry budgets
//
// Cache metrics (pkg/cache):
//   - proxy_cache_hits_total (Counter): fresh hits
//   - proxy_cache_misses_total (Counter): misses, including stale reads
//   - proxy_cache_entries (Gauge): current entry count
//   - proxy_cache_sweep_removed_total (Counter): entries reclaimed by the sweep
//   - proxy_cache_clears_total (Counter): manual full clears
//
// Enrichment metrics (pkg/enrich):
//   - proxy_enrichments_total{status} (Counter): per-event outcomes (success, degraded)
//
// Example Prometheus queries:
//
//	# Cache hit rate
//	rate(proxy_cache_hits_total[5m]) /
//	(rate(proxy_cache_hits_total[5m]) + rate(proxy_cache_misses_total[5m]))
//
//	# Degraded enrichment share
//	rate(proxy_enrichments_total{status="degraded"}[5m]) /
//	rate(proxy_enrichments_total[5m])
//
//	# P95 upstream latency
//	histogram_quantile(0.95, rate(proxy_upstream_request_duration_seconds_bucket[5m]))
