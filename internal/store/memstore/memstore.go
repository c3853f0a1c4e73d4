// Package memstore provides an in-memory store. It backs tests and is the
// index behind snapstore.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/discochess/barback/internal/record"
	"github.com/discochess/barback/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is an in-memory store.
type Store struct {
	clock store.Clock

	mu      sync.RWMutex
	records map[string]record.Cocktail
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used to stamp written records.
func WithClock(clock store.Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		clock:   time.Now,
		records: make(map[string]record.Cocktail),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns copies of all records in access order.
func (s *Store) Snapshot() []record.Cocktail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

// Load replaces the contents of the store with recs, keeping their timestamps.
func (s *Store) Load(recs []record.Cocktail) {
	next := make(map[string]record.Cocktail, len(recs))
	for _, r := range recs {
		next[r.ID] = r.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = next
}

// Apply builds the state that would result from fn without committing it.
// fn receives a private copy of the records. If fn succeeds, commit is called
// with the new state and, when commit succeeds too, the new state replaces the
// current one. The store stays locked throughout.
func (s *Store) Apply(fn func(recs map[string]record.Cocktail, now time.Time) error, commit func([]record.Cocktail) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}

	next := maps.Clone(s.records)
	if err := fn(next, s.clock()); err != nil {
		return err
	}
	if commit != nil {
		snapshot := slices.Collect(maps.Values(next))
		store.SortByAccess(snapshot)
		if err := commit(snapshot); err != nil {
			return err
		}
	}
	s.records = next
	return nil
}

// UpsertAll writes recs atomically, stamping both timestamps.
func (s *Store) UpsertAll(ctx context.Context, recs []record.Cocktail) error {
	return s.apply(ctx, Upsert(recs), nil)
}

// GetAll returns every record, most recently accessed first.
func (s *Store) GetAll(ctx context.Context) ([]record.Cocktail, error) {
	return s.query(ctx, func(record.Cocktail) bool { return true }, store.SortByAccess)
}

// GetByID returns the record with id.
func (s *Store) GetByID(ctx context.Context, id string) (record.Cocktail, bool, error) {
	if err := ctx.Err(); err != nil {
		return record.Cocktail{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return record.Cocktail{}, false, store.ErrClosed
	}
	r, ok := s.records[id]
	if !ok {
		return record.Cocktail{}, false, nil
	}
	return r.Clone(), true, nil
}

// SearchByText returns records whose name or ingredients contain query.
func (s *Store) SearchByText(ctx context.Context, query string) ([]record.Cocktail, error) {
	return s.query(ctx, func(r record.Cocktail) bool {
		return store.MatchesText(r, query)
	}, store.SortByAccess)
}

// GetByCategory returns records in category, best rated first.
func (s *Store) GetByCategory(ctx context.Context, category string) ([]record.Cocktail, error) {
	return s.query(ctx, func(r record.Cocktail) bool {
		return store.SameCategory(r.Category, category)
	}, store.SortByRating)
}

// GetByMinRating returns records rated at least min, best rated first.
func (s *Store) GetByMinRating(ctx context.Context, min float64) ([]record.Cocktail, error) {
	return s.query(ctx, func(r record.Cocktail) bool {
		return r.Rating >= min
	}, store.SortByRating)
}

// TouchAccess sets LastAccessedAt of id.
func (s *Store) TouchAccess(ctx context.Context, id string, at time.Time) error {
	return s.apply(ctx, Touch(id, at), nil)
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, store.ErrClosed
	}
	return len(s.records), nil
}

// OldestFetchedAt returns the earliest FetchedAt.
func (s *Store) OldestFetchedAt(ctx context.Context) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return time.Time{}, false, store.ErrClosed
	}
	oldest, ok := store.Oldest(slices.Collect(maps.Values(s.records)))
	return oldest, ok, nil
}

// TrimToRecent keeps the limit most recently accessed records.
func (s *Store) TrimToRecent(ctx context.Context, limit int) (int, error) {
	var trimmed int
	err := s.apply(ctx, Trim(limit, &trimmed), nil)
	if err != nil {
		return 0, err
	}
	return trimmed, nil
}

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	return s.apply(ctx, ClearAll, nil)
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) apply(ctx context.Context, fn func(map[string]record.Cocktail, time.Time) error, commit func([]record.Cocktail) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Apply(fn, commit)
}

func (s *Store) query(ctx context.Context, keep func(record.Cocktail) bool, order func([]record.Cocktail)) ([]record.Cocktail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	out := store.Filter(slices.Collect(maps.Values(s.records)), keep)
	order(out)
	return out, nil
}

func (s *Store) sortedLocked() []record.Cocktail {
	out := store.Filter(slices.Collect(maps.Values(s.records)), func(record.Cocktail) bool { return true })
	store.SortByAccess(out)
	return out
}

// Upsert returns a mutation writing recs with both timestamps set to now.
func Upsert(recs []record.Cocktail) func(map[string]record.Cocktail, time.Time) error {
	return func(m map[string]record.Cocktail, now time.Time) error {
		if err := store.Validate(recs); err != nil {
			return err
		}
		for _, r := range store.Stamp(recs, now) {
			m[r.ID] = r
		}
		return nil
	}
}

// Touch returns a mutation setting LastAccessedAt of id.
func Touch(id string, at time.Time) func(map[string]record.Cocktail, time.Time) error {
	return func(m map[string]record.Cocktail, _ time.Time) error {
		r, ok := m[id]
		if !ok {
			return nil
		}
		r.LastAccessedAt = at
		m[id] = r
		return nil
	}
}

// Trim returns a mutation keeping the limit most recently accessed records.
// The number of deleted records is stored in trimmed.
func Trim(limit int, trimmed *int) func(map[string]record.Cocktail, time.Time) error {
	return func(m map[string]record.Cocktail, _ time.Time) error {
		all := slices.Collect(maps.Values(m))
		store.SortByAccess(all)
		_, evict := store.Partition(all, limit)
		for _, r := range evict {
			delete(m, r.ID)
		}
		*trimmed = len(evict)
		return nil
	}
}

// ClearAll is a mutation deleting every record.
func ClearAll(m map[string]record.Cocktail, _ time.Time) error {
	clear(m)
	return nil
}
