// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Client metrics.
	MetricFetches        = "barback_fetches_total"
	MetricFreshHits      = "barback_fresh_cache_hits_total"
	MetricOfflineServes  = "barback_offline_serves_total"
	MetricFallbacks      = "barback_fallbacks_total"
	MetricRemoteFailures = "barback_remote_failures_total"
	MetricFetchDuration  = "barback_fetch_duration_seconds"

	// Image resolver metrics.
	MetricImageLookups  = "barback_image_lookups_total"
	MetricImageMemoHits = "barback_image_memo_hits_total"
	MetricImageMatches  = "barback_image_matches_total"
	MetricImageMisses   = "barback_image_misses_total"
	MetricImageErrors   = "barback_image_errors_total"

	// Cache metrics.
	MetricCacheHits    = "barback_cache_hits_total"
	MetricCacheMisses  = "barback_cache_misses_total"
	MetricCacheSize    = "barback_cache_size"
	MetricStoreRecords = "barback_store_records"
	MetricTrimmed      = "barback_store_trimmed_total"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}

var help = map[string]string{
	MetricFetches:        "Cocktail list requests served.",
	MetricFreshHits:      "List requests answered from a fresh cache.",
	MetricOfflineServes:  "List requests answered from cache while offline.",
	MetricFallbacks:      "List requests answered from cache after a remote failure.",
	MetricRemoteFailures: "Remote catalog calls that failed.",
	MetricFetchDuration:  "Duration of remote catalog fetches in seconds.",
	MetricImageLookups:   "Image resolutions requested.",
	MetricImageMemoHits:  "Image resolutions answered from the memo.",
	MetricImageMatches:   "Image resolutions that found an image.",
	MetricImageMisses:    "Image resolutions that found no image.",
	MetricImageErrors:    "Image resolutions aborted by a remote error.",
	MetricCacheHits:      "Record lookups served by the LRU cache.",
	MetricCacheMisses:    "Record lookups that missed the LRU cache.",
	MetricCacheSize:      "Entries held by the LRU cache.",
	MetricStoreRecords:   "Records held by the persistent store.",
	MetricTrimmed:        "Records evicted by retention trimming.",
}

// Help returns the description of a metric, or the name itself if unknown.
func Help(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	return name
}
