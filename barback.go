// Package barback provides an offline-first cache of cocktails with images
// resolved by fuzzy name matching.
//
// Example usage:
//
//	cache, err := barback.WithCacheDir(ctx, "/path/to/cache")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := barback.New(cache, barback.WithCocktailDB())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	cocktails, source, err := client.Fetch(ctx, 0, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d cocktails from %s\n", len(cocktails), source)
package barback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/barback/internal/connectivity"
	"github.com/discochess/barback/internal/record"
	"github.com/discochess/barback/internal/remote"
	"github.com/discochess/barback/internal/resolver"
	"github.com/discochess/barback/internal/stats"
	"github.com/discochess/barback/internal/store"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrOffline indicates the network is unavailable and the cache is empty.
	ErrOffline = errors.New("barback: no data available offline")

	// ErrNoData indicates the network returned nothing usable and the cache is
	// empty. It wraps the remote error when there was one.
	ErrNoData = errors.New("barback: no data available")

	// ErrClosed indicates the client has been closed.
	ErrClosed = errors.New("barback: client closed")

	// ErrNoStore indicates no store was provided.
	ErrNoStore = errors.New("barback: no store provided")

	// ErrNoCatalog indicates no catalog was provided.
	ErrNoCatalog = errors.New("barback: no catalog provided")

	// ErrNoImageSearcher indicates no image searcher was provided.
	ErrNoImageSearcher = errors.New("barback: no image searcher provided")
)

// Client serves cocktails from its cache, refreshing it from the remote
// catalog when it is stale and the network is available.
// A Client is safe for concurrent use by multiple goroutines.
type Client struct {
	store        store.Store
	catalog      remote.Catalog
	resolver     *resolver.Resolver
	connectivity connectivity.Checker
	validity     time.Duration
	retention    int
	fetchLimit   int
	stats        stats.Collector
	logger       *zap.Logger
	clock        func() time.Time
	closed       atomic.Bool
}

// New creates a new Client with the given options.
// A store, a catalog and an image searcher are required.
func New(opts ...Option) (*Client, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	switch {
	case cfg.store == nil:
		return nil, ErrNoStore
	case cfg.catalog == nil:
		return nil, ErrNoCatalog
	case cfg.images == nil:
		return nil, ErrNoImageSearcher
	}
	if cfg.stats == nil {
		cfg.stats = stats.NewNoop()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.connectivity == nil {
		cfg.connectivity = connectivity.Static(true)
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}

	c := &Client{
		store:   cfg.store,
		catalog: cfg.catalog,
		resolver: resolver.New(cfg.images,
			resolver.WithStats(cfg.stats),
			resolver.WithLogger(cfg.logger.Named("resolver")),
			resolver.WithConcurrency(cfg.enrichConcurrency),
		),
		connectivity: cfg.connectivity,
		validity:     cfg.validity,
		retention:    cfg.retention,
		fetchLimit:   cfg.fetchLimit,
		stats:        cfg.stats,
		logger:       cfg.logger,
		clock:        cfg.clock,
	}

	c.logger.Debug("client initialized",
		zap.Duration("validity", c.validity),
		zap.Int("retention", c.retention),
		zap.Int("fetchLimit", c.fetchLimit),
	)

	return c, nil
}

// Fetch returns up to limit cocktails, or the configured fetch limit when limit
// is zero. Offline, the cache is served whatever its age. Online, a fresh cache
// is served unless forceRefresh is set; otherwise the catalog is fetched, its
// images resolved, and the result cached. When the fetch fails or returns
// nothing the cache is served instead.
//
// ErrOffline and ErrNoData report that there was nothing to serve.
func (c *Client) Fetch(ctx context.Context, limit int, forceRefresh bool) ([]Cocktail, Source, error) {
	return c.fetch(ctx, limit, forceRefresh, nil)
}

// Cocktails runs Fetch in the background. The stream emits a Loading update
// just before the network is contacted, then the final result, then closes.
// Nothing is emitted as Loading when the cache is served directly.
func (c *Client) Cocktails(ctx context.Context, limit int, forceRefresh bool) <-chan Update {
	updates := make(chan Update, 2)
	go func() {
		defer close(updates)
		recs, src, err := c.fetch(ctx, limit, forceRefresh, func() {
			updates <- Update{Loading: true, Cocktails: []Cocktail{}}
		})
		updates <- Update{Cocktails: recs, Source: src, Err: err}
	}()
	return updates
}

func (c *Client) fetch(ctx context.Context, limit int, forceRefresh bool, loading func()) ([]Cocktail, Source, error) {
	if c.closed.Load() {
		return nil, 0, ErrClosed
	}
	c.stats.IncCounter(stats.MetricFetches, 1)

	if limit <= 0 {
		limit = c.fetchLimit
	}

	if !c.connectivity.Online(ctx) {
		cached, err := c.store.GetAll(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("reading cache: %w", err)
		}
		if len(cached) == 0 {
			return nil, 0, ErrOffline
		}
		c.stats.IncCounter(stats.MetricOfflineServes, 1)
		return cached, SourceOffline, nil
	}

	if !forceRefresh {
		info, err := c.CacheInfo(ctx)
		if err != nil {
			return nil, 0, err
		}
		if info.State == FreshnessFresh {
			cached, err := c.store.GetAll(ctx)
			if err != nil {
				return nil, 0, fmt.Errorf("reading cache: %w", err)
			}
			if len(cached) > 0 {
				c.stats.IncCounter(stats.MetricFreshHits, 1)
				return cached, SourceCache, nil
			}
		}
	}

	if loading != nil {
		loading()
	}

	fetched, err := c.refresh(ctx, limit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		c.stats.IncCounter(stats.MetricRemoteFailures, 1)
		c.logger.Warn("fetching cocktails failed, serving cache", zap.Error(err))
		return c.fallback(ctx, err)
	}
	if len(fetched) == 0 {
		c.logger.Info("catalog returned no cocktails, serving cache")
		return c.fallback(ctx, nil)
	}
	return fetched, SourceNetwork, nil
}

// refresh lists the catalog, resolves images and writes the result to the
// cache. A failed cache write is logged; the fetched cocktails are still
// returned.
func (c *Client) refresh(ctx context.Context, limit int) ([]Cocktail, error) {
	start := c.clock()
	entries, err := c.catalog.ListCocktails(ctx, limit)
	c.stats.ObserveHistogram(stats.MetricFetchDuration, c.clock().Sub(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("listing cocktails: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	recs := make([]Cocktail, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		r := fromEntry(e)
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		recs = append(recs, r)
	}

	enriched, err := c.resolver.EnrichMany(ctx, recs)
	if err != nil {
		return nil, fmt.Errorf("resolving images: %w", err)
	}

	c.save(ctx, enriched)
	return store.Stamp(enriched, c.clock()), nil
}

// save upserts recs and trims the cache to the retention bound.
func (c *Client) save(ctx context.Context, recs []Cocktail) {
	if err := c.store.UpsertAll(ctx, recs); err != nil {
		c.logger.Error("caching cocktails failed",
			zap.Int("count", len(recs)),
			zap.Error(err),
		)
		return
	}

	trimmed, err := c.store.TrimToRecent(ctx, c.retention)
	if err != nil {
		c.logger.Warn("trimming cache failed", zap.Error(err))
	} else if trimmed > 0 {
		c.stats.IncCounter(stats.MetricTrimmed, int64(trimmed))
		c.logger.Debug("trimmed cache", zap.Int("trimmed", trimmed))
	}

	if n, err := c.store.Count(ctx); err == nil {
		c.stats.SetGauge(stats.MetricStoreRecords, int64(n))
	}
}

func (c *Client) fallback(ctx context.Context, cause error) ([]Cocktail, Source, error) {
	cached, err := c.store.GetAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("reading cache: %w", err)
	}
	if len(cached) == 0 {
		if cause != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrNoData, cause)
		}
		return nil, 0, ErrNoData
	}
	c.stats.IncCounter(stats.MetricFallbacks, 1)
	return cached, SourceFallback, nil
}

// Search returns cached cocktails whose name or ingredients contain query,
// ignoring case. It never contacts the network.
func (c *Client) Search(ctx context.Context, query string) ([]Cocktail, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	return c.store.SearchByText(ctx, query)
}

// Cocktail returns the cached cocktail with id and marks it as accessed.
func (c *Client) Cocktail(ctx context.Context, id string) (Cocktail, bool, error) {
	if c.closed.Load() {
		return Cocktail{}, false, ErrClosed
	}

	rec, ok, err := c.store.GetByID(ctx, id)
	if err != nil || !ok {
		return Cocktail{}, false, err
	}

	now := c.clock()
	if err := c.store.TouchAccess(ctx, id, now); err != nil {
		c.logger.Warn("recording access failed", zap.String("id", id), zap.Error(err))
	} else {
		rec.LastAccessedAt = now
	}
	return rec, true, nil
}

// ByCategory returns cached cocktails in category, best rated first.
func (c *Client) ByCategory(ctx context.Context, category string) ([]Cocktail, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	return c.store.GetByCategory(ctx, category)
}

// TopRated returns cached cocktails rated at least min, best rated first.
func (c *Client) TopRated(ctx context.Context, min float64) ([]Cocktail, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	return c.store.GetByMinRating(ctx, min)
}

// ByIngredient returns cocktails containing ingredient. Online, the catalog is
// queried and the results are merged into the cache; offline, or when the
// catalog fails or has no match, the cache is searched instead.
func (c *Client) ByIngredient(ctx context.Context, ingredient string) ([]Cocktail, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	ingredient = strings.TrimSpace(ingredient)
	if ingredient == "" {
		return []Cocktail{}, nil
	}

	if !c.connectivity.Online(ctx) {
		return c.store.SearchByText(ctx, ingredient)
	}

	entries, err := c.catalog.FilterByIngredient(ctx, ingredient)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.stats.IncCounter(stats.MetricRemoteFailures, 1)
		c.logger.Warn("filtering by ingredient failed, searching cache",
			zap.String("ingredient", ingredient),
			zap.Error(err),
		)
		return c.store.SearchByText(ctx, ingredient)
	}
	if len(entries) == 0 {
		return c.store.SearchByText(ctx, ingredient)
	}

	recs, err := c.mergeWithCache(ctx, entries, ingredient)
	if err != nil {
		return nil, err
	}

	// Only records still lacking an image are resolved.
	var missing []Cocktail
	var at []int
	for i, r := range recs {
		if r.ImageRef == "" {
			missing = append(missing, r)
			at = append(at, i)
		}
	}
	if len(missing) > 0 {
		enriched, err := c.resolver.EnrichMany(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("resolving images: %w", err)
		}
		for j, i := range at {
			recs[i] = enriched[j]
		}
	}

	c.save(ctx, recs)
	return store.Stamp(recs, c.clock()), nil
}

// mergeWithCache converts entries to records, filling fields the catalog left
// out from the cached record with the same id.
func (c *Client) mergeWithCache(ctx context.Context, entries []remote.CatalogEntry, ingredient string) ([]Cocktail, error) {
	recs := make([]Cocktail, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		r := fromEntry(e)
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		cached, ok, err := c.store.GetByID(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("reading cache: %w", err)
		}
		switch {
		case ok:
			r = merge(cached, r)
		case len(r.Ingredients) == 0:
			r.Category = record.Classify([]string{ingredient})
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// merge overlays the non-empty fields of fresh on cached.
func merge(cached, fresh Cocktail) Cocktail {
	out := cached.Clone()
	if fresh.Name != "" {
		out.Name = fresh.Name
	}
	if fresh.ImageRef != "" {
		out.ImageRef = fresh.ImageRef
	}
	if len(fresh.Ingredients) > 0 {
		out.Ingredients = fresh.Ingredients
		out.Category = fresh.Category
	}
	if fresh.Instructions != "" {
		out.Instructions = fresh.Instructions
	}
	if fresh.Servings > 0 {
		out.Servings = fresh.Servings
	}
	return out
}

// CacheInfo describes the size and age of the cache.
func (c *Client) CacheInfo(ctx context.Context) (CacheInfo, error) {
	if c.closed.Load() {
		return CacheInfo{}, ErrClosed
	}

	count, err := c.store.Count(ctx)
	if err != nil {
		return CacheInfo{}, fmt.Errorf("counting cache: %w", err)
	}
	oldest, ok, err := c.store.OldestFetchedAt(ctx)
	if err != nil {
		return CacheInfo{}, fmt.Errorf("reading cache age: %w", err)
	}

	info := CacheInfo{Count: count, HasAge: ok}
	if ok {
		info.Age = c.clock().Sub(oldest)
	}
	info.State = freshness(count, info.Age, c.validity)
	return info, nil
}

// ClearCache deletes every cached cocktail. Resolved image names stay
// memoized.
func (c *Client) ClearCache(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	c.stats.SetGauge(stats.MetricStoreRecords, 0)
	return nil
}

// Sync refreshes the cache from the catalog regardless of its age and returns
// the number of refreshed cocktails. Unlike Fetch it never falls back: offline
// it returns ErrOffline, and remote errors are returned.
func (c *Client) Sync(ctx context.Context) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	if !c.connectivity.Online(ctx) {
		return 0, ErrOffline
	}

	fetched, err := c.refresh(ctx, c.fetchLimit)
	if err != nil {
		c.stats.IncCounter(stats.MetricRemoteFailures, 1)
		return 0, fmt.Errorf("syncing: %w", err)
	}
	return len(fetched), nil
}

// ResolveImage resolves the image of a cocktail name. Results are memoized for
// the life of the client, including misses.
func (c *Client) ResolveImage(ctx context.Context, name string) (string, bool, error) {
	if c.closed.Load() {
		return "", false, ErrClosed
	}
	ref, ok := c.resolver.Resolve(ctx, name)
	return ref, ok, nil
}

// Close releases all resources associated with the client.
// After Close, the client should not be used.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	if err := c.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}

// Store returns the cache store used by this client.
func (c *Client) Store() store.Store {
	return c.store
}
