// Package lru implements an LRU cache eviction strategy.
package lru

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/discochess/barback/internal/record"
	"github.com/discochess/barback/internal/store/cachedstore/cachestrategy"
)

// Compile-time check that Strategy implements cachestrategy.Strategy.
var _ cachestrategy.Strategy = (*Strategy)(nil)

// Strategy implements LRU eviction.
type Strategy struct {
	cache *lru.Cache[string, record.Cocktail]
}

// New creates a new LRU strategy with the given capacity.
func New(capacity int) (*Strategy, error) {
	c, err := lru.New[string, record.Cocktail](capacity)
	if err != nil {
		return nil, err
	}
	return &Strategy{cache: c}, nil
}

// Get retrieves a value by key and marks it recently used.
func (s *Strategy) Get(key string) (record.Cocktail, bool) {
	return s.cache.Get(key)
}

// Add adds a value to the cache. It reports whether an eviction occurred.
func (s *Strategy) Add(key string, value record.Cocktail) bool {
	return s.cache.Add(key, value)
}

// Remove removes key. It reports whether the key was present.
func (s *Strategy) Remove(key string) bool {
	return s.cache.Remove(key)
}

// Purge removes every entry.
func (s *Strategy) Purge() {
	s.cache.Purge()
}

// Len returns the number of items in the cache.
func (s *Strategy) Len() int {
	return s.cache.Len()
}
