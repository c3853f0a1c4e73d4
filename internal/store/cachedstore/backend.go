// Package cachedstore provides a read-through record cache in front of a Store.
package cachedstore

import "github.com/discochess/barback/internal/record"

// Backend defines the interface for cache storage backends.
// Implementations handle storage and eviction strategy.
type Backend interface {
	// Get retrieves a cached record.
	Get(id string) (record.Cocktail, bool)

	// Set stores a record in the cache.
	Set(id string, rec record.Cocktail)

	// Remove drops a record from the cache.
	Remove(id string)

	// Purge drops every record.
	Purge()

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int // Current number of entries
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}
