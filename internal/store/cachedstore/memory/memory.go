// Package memory implements an in-memory cache backend.
package memory

import (
	"sync/atomic"

	"github.com/discochess/barback/internal/record"
	"github.com/discochess/barback/internal/stats"
	"github.com/discochess/barback/internal/store/cachedstore"
	"github.com/discochess/barback/internal/store/cachedstore/cachestrategy"
)

// Compile-time check that Backend implements cachedstore.Backend.
var _ cachedstore.Backend = (*Backend)(nil)

// Backend is a thread-safe in-memory cache backend. Records are copied on the
// way in and out.
type Backend struct {
	strategy  cachestrategy.Strategy
	collector stats.Collector

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a new memory backend with the given eviction strategy.
// The collector is optional; if nil, a no-op collector is used.
func New(strategy cachestrategy.Strategy, collector stats.Collector) *Backend {
	return &Backend{
		strategy:  strategy,
		collector: stats.OrNoop(collector),
	}
}

// Get retrieves a record from the cache.
func (b *Backend) Get(id string) (record.Cocktail, bool) {
	rec, ok := b.strategy.Get(id)
	if ok {
		b.hits.Add(1)
		b.collector.IncCounter(stats.MetricCacheHits, 1)
		return rec.Clone(), true
	}
	b.misses.Add(1)
	b.collector.IncCounter(stats.MetricCacheMisses, 1)
	return record.Cocktail{}, false
}

// Set stores a record in the cache.
func (b *Backend) Set(id string, rec record.Cocktail) {
	b.strategy.Add(id, rec.Clone())
	b.reportSize()
}

// Remove drops a record from the cache.
func (b *Backend) Remove(id string) {
	if b.strategy.Remove(id) {
		b.reportSize()
	}
}

// Purge drops every record.
func (b *Backend) Purge() {
	b.strategy.Purge()
	b.reportSize()
}

// Stats returns current cache statistics.
func (b *Backend) Stats() cachedstore.Stats {
	return cachedstore.Stats{
		Hits:   b.hits.Load(),
		Misses: b.misses.Load(),
		Size:   b.strategy.Len(),
	}
}

// Len returns the number of items in the cache.
func (b *Backend) Len() int {
	return b.strategy.Len()
}

func (b *Backend) reportSize() {
	b.collector.SetGauge(stats.MetricCacheSize, int64(b.strategy.Len()))
}
