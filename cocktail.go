package barback

import (
	"time"

	"github.com/discochess/barback/internal/record"
	"github.com/discochess/barback/internal/remote"
)

// Cocktail is a cached cocktail with its resolved image.
type Cocktail = record.Cocktail

// Source tells where the cocktails of a Fetch came from.
type Source int

const (
	// SourceCache means the cache was fresh and no remote call was made.
	SourceCache Source = iota + 1

	// SourceOffline means the network was unavailable and the cache was
	// served regardless of its age.
	SourceOffline

	// SourceNetwork means the cocktails were fetched, enriched and cached.
	SourceNetwork

	// SourceFallback means the remote call failed or returned nothing and the
	// cache was served instead.
	SourceFallback
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceOffline:
		return "offline"
	case SourceNetwork:
		return "network"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Update is one emission of Client.Cocktails.
//
// A stream yields at most one Update with Loading set, always before the
// network is contacted, followed by exactly one final Update.
type Update struct {
	// Loading marks the transient emission preceding a network fetch.
	Loading bool

	Cocktails []Cocktail
	Source    Source
	Err       error
}

// Freshness is the state of the cache derived from its oldest record.
type Freshness int

const (
	FreshnessEmpty Freshness = iota
	FreshnessFresh
	FreshnessStale
)

// String returns the freshness name.
func (f Freshness) String() string {
	switch f {
	case FreshnessFresh:
		return "fresh"
	case FreshnessStale:
		return "stale"
	default:
		return "empty"
	}
}

// CacheInfo describes the cache.
type CacheInfo struct {
	Count int

	// Age is the time since the oldest record was fetched. Valid only when
	// HasAge is set, which it is whenever Count > 0.
	Age    time.Duration
	HasAge bool

	State Freshness
}

// IsStale reports whether a non-forced fetch would contact the network. An
// empty cache is stale.
func (i CacheInfo) IsStale() bool {
	return i.State != FreshnessFresh
}

func freshness(count int, age time.Duration, validity time.Duration) Freshness {
	switch {
	case count == 0:
		return FreshnessEmpty
	case age < validity:
		return FreshnessFresh
	default:
		return FreshnessStale
	}
}

// fromEntry converts a catalog entry to a cocktail record. Entries without an
// id get one derived from their name.
func fromEntry(e remote.CatalogEntry) Cocktail {
	id := e.ID
	if id == "" {
		id = record.KeyFor(e.Name)
	}
	var ingredients []string
	if len(e.Ingredients) > 0 {
		ingredients = append([]string(nil), e.Ingredients...)
	}
	return Cocktail{
		ID:           id,
		Name:         e.Name,
		ImageRef:     e.ImageRef,
		Category:     record.Classify(e.Ingredients),
		Rating:       record.SyntheticRating(id),
		Ingredients:  ingredients,
		Instructions: e.Instructions,
		Servings:     e.Servings,
	}
}
