// Package metrics exposes the Prometheus registry shared by the databox
// packages. Metrics are defined next to the code that records them (cache,
// client, databox, lock) and registered via promauto; this package serves
// them and documents the full set.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registerer used by every databox package.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry, promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Metrics Documentation
//
// Generation Metrics (pkg/databox):
//   - databox_generate_total{outcome} (Counter): Lookups by outcome (hit, generated, empty, fallback, failed, skipped, insufficient)
//   - databox_generate_duration_seconds (Histogram): Time spent regenerating on a miss
//
// Cache Metrics (pkg/cache):
//   - databox_cache_hits_total{layer} (Counter): Cache hits by store (memory, redis, valkey)
//   - databox_cache_misses_total{layer} (Counter): Cache misses by store
//   - databox_cache_errors_total{layer, operation} (Counter): Store errors by operation (get, set, delete)
//
// Product API Metrics (pkg/client):
//   - databox_api_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - databox_api_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - databox_api_errors_total{class} (Counter): Errors by class (client, server, network, invalid)
//
// Lock Metrics (pkg/lock):
//   - databox_lock_attempts_total{result} (Counter): Regeneration lock attempts by result
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(databox_generate_total{outcome="hit"}[5m])) /
//   sum(rate(databox_generate_total{outcome=~"hit|generated|empty|fallback|failed"}[5m]))
//
//   # Pages served from the last-known-good copy
//   rate(databox_generate_total{outcome="fallback"}[5m])
//
//   # Upstream Error Rate
//   rate(databox_api_errors_total[5m])
//
//   # P95 Product API Latency
//   histogram_quantile(0.95, rate(databox_api_request_duration_seconds_bucket[5m]))
