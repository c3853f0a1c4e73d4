package cachedstore

import (
	"context"
	"sync"
	"time"

	"github.com/discochess/barback/internal/record"
	"github.com/discochess/barback/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store wraps another Store and caches GetByID. Writes through the wrapper
// invalidate the affected entries, so the underlying store must not be written
// to directly while wrapped.
//
// A read that overlaps a write is not cached, so an entry is never older than
// the last write made through the wrapper.
type Store struct {
	underlying store.Store
	backend    Backend

	// mu orders cache fills against invalidations. generation counts them.
	mu         sync.Mutex
	generation uint64
}

// New creates a new cached store wrapping the given store.
func New(underlying store.Store, backend Backend) *Store {
	return &Store{
		underlying: underlying,
		backend:    backend,
	}
}

// GetByID reads a record, checking the cache first.
func (s *Store) GetByID(ctx context.Context, id string) (record.Cocktail, bool, error) {
	if rec, ok := s.backend.Get(id); ok {
		return rec, true, nil
	}

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	rec, ok, err := s.underlying.GetByID(ctx, id)
	if err != nil || !ok {
		return rec, ok, err
	}

	s.mu.Lock()
	if s.generation == gen {
		s.backend.Set(id, rec)
	}
	s.mu.Unlock()
	return rec, true, nil
}

// UpsertAll writes through and invalidates the written ids.
func (s *Store) UpsertAll(ctx context.Context, recs []record.Cocktail) error {
	err := s.underlying.UpsertAll(ctx, recs)
	s.invalidate(func() {
		for _, r := range recs {
			s.backend.Remove(r.ID)
		}
	})
	return err
}

// TouchAccess writes through and invalidates id.
func (s *Store) TouchAccess(ctx context.Context, id string, at time.Time) error {
	err := s.underlying.TouchAccess(ctx, id, at)
	s.invalidate(func() { s.backend.Remove(id) })
	return err
}

// TrimToRecent writes through and purges the cache.
func (s *Store) TrimToRecent(ctx context.Context, limit int) (int, error) {
	n, err := s.underlying.TrimToRecent(ctx, limit)
	if n > 0 || err != nil {
		s.invalidate(s.backend.Purge)
	}
	return n, err
}

// Clear writes through and purges the cache.
func (s *Store) Clear(ctx context.Context) error {
	err := s.underlying.Clear(ctx)
	s.invalidate(s.backend.Purge)
	return err
}

// invalidate runs drop and discards any fill started before it.
func (s *Store) invalidate(drop func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	drop()
}

// GetAll reads from the underlying store.
func (s *Store) GetAll(ctx context.Context) ([]record.Cocktail, error) {
	return s.underlying.GetAll(ctx)
}

// SearchByText reads from the underlying store.
func (s *Store) SearchByText(ctx context.Context, query string) ([]record.Cocktail, error) {
	return s.underlying.SearchByText(ctx, query)
}

// GetByCategory reads from the underlying store.
func (s *Store) GetByCategory(ctx context.Context, category string) ([]record.Cocktail, error) {
	return s.underlying.GetByCategory(ctx, category)
}

// GetByMinRating reads from the underlying store.
func (s *Store) GetByMinRating(ctx context.Context, min float64) ([]record.Cocktail, error) {
	return s.underlying.GetByMinRating(ctx, min)
}

// Count reads from the underlying store.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.underlying.Count(ctx)
}

// OldestFetchedAt reads from the underlying store.
func (s *Store) OldestFetchedAt(ctx context.Context) (time.Time, bool, error) {
	return s.underlying.OldestFetchedAt(ctx)
}

// Close purges the cache and closes the underlying store.
func (s *Store) Close() error {
	s.invalidate(s.backend.Purge)
	return s.underlying.Close()
}

// Stats returns cache statistics.
func (s *Store) Stats() Stats {
	return s.backend.Stats()
}
