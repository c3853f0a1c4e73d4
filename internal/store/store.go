// Package store defines the persistent cocktail cache and the helpers shared by
// its backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/discochess/barback/internal/record"
)

var (
	// ErrInvalidRecord is returned when a record cannot be stored.
	ErrInvalidRecord = errors.New("store: invalid record")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
)

// Store is durable keyed storage for cocktail records.
//
// Every read returns copies; callers may modify results freely.
type Store interface {
	// UpsertAll replaces records by ID. Both FetchedAt and LastAccessedAt of
	// every written record are set to the store's current time. The batch is
	// atomic: on error nothing is written.
	UpsertAll(ctx context.Context, recs []record.Cocktail) error

	// GetAll returns every record, most recently accessed first.
	GetAll(ctx context.Context) ([]record.Cocktail, error)

	// GetByID returns the record with id, or false if there is none.
	GetByID(ctx context.Context, id string) (record.Cocktail, bool, error)

	// SearchByText returns records whose name or any ingredient contains
	// query, case-insensitively, most recently accessed first.
	SearchByText(ctx context.Context, query string) ([]record.Cocktail, error)

	// GetByCategory returns records in category, best rated first.
	GetByCategory(ctx context.Context, category string) ([]record.Cocktail, error)

	// GetByMinRating returns records rated at least min, best rated first.
	GetByMinRating(ctx context.Context, min float64) ([]record.Cocktail, error)

	// TouchAccess sets LastAccessedAt of id to at. Missing ids are ignored.
	TouchAccess(ctx context.Context, id string, at time.Time) error

	// Count returns the number of records.
	Count(ctx context.Context) (int, error)

	// OldestFetchedAt returns the earliest FetchedAt, or false when empty.
	OldestFetchedAt(ctx context.Context) (time.Time, bool, error)

	// TrimToRecent keeps the limit most recently accessed records and deletes
	// the rest, returning how many were deleted.
	TrimToRecent(ctx context.Context, limit int) (int, error)

	// Clear deletes every record.
	Clear(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Clock returns the current time. Backends accept one for tests.
type Clock func() time.Time

// Validate checks that every record in recs can be stored.
func Validate(recs []record.Cocktail) error {
	for i, r := range recs {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("%w: record %d (%q) has no id", ErrInvalidRecord, i, r.Name)
		}
	}
	return nil
}

// Stamp returns deep copies of recs with both timestamps set to now.
func Stamp(recs []record.Cocktail, now time.Time) []record.Cocktail {
	out := make([]record.Cocktail, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
		out[i].FetchedAt = now
		out[i].LastAccessedAt = now
	}
	return out
}

// SortByAccess orders recs by LastAccessedAt descending, then ID ascending.
func SortByAccess(recs []record.Cocktail) {
	slices.SortStableFunc(recs, func(a, b record.Cocktail) int {
		if c := b.LastAccessedAt.Compare(a.LastAccessedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// SortByRating orders recs by Rating descending, then ID ascending.
func SortByRating(recs []record.Cocktail) {
	slices.SortStableFunc(recs, func(a, b record.Cocktail) int {
		switch {
		case a.Rating > b.Rating:
			return -1
		case a.Rating < b.Rating:
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// MatchesText reports whether r's name or any ingredient contains query,
// ignoring case. An empty query matches everything.
func MatchesText(r record.Cocktail, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Name), q) {
		return true
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing), q) {
			return true
		}
	}
	return false
}

// Filter returns copies of the records for which keep returns true.
func Filter(recs []record.Cocktail, keep func(record.Cocktail) bool) []record.Cocktail {
	out := make([]record.Cocktail, 0, len(recs))
	for _, r := range recs {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Partition splits recs, which must be sorted by SortByAccess, into the limit
// records to keep and the rest to evict.
func Partition(recs []record.Cocktail, limit int) (keep, evict []record.Cocktail) {
	limit = max(limit, 0)
	if len(recs) <= limit {
		return recs, nil
	}
	return recs[:limit], recs[limit:]
}

// Oldest returns the earliest FetchedAt among recs.
func Oldest(recs []record.Cocktail) (time.Time, bool) {
	var (
		oldest time.Time
		found  bool
	)
	for _, r := range recs {
		if !found || r.FetchedAt.Before(oldest) {
			oldest = r.FetchedAt
			found = true
		}
	}
	return oldest, found
}

// SameCategory reports whether two category labels are equal, ignoring case
// and surrounding space.
func SameCategory(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
