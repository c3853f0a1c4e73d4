package barback

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/barback/internal/blob/fileblob"
	"github.com/discochess/barback/internal/codec/zstdcodec"
	"github.com/discochess/barback/internal/connectivity"
	"github.com/discochess/barback/internal/remote"
	"github.com/discochess/barback/internal/remote/cocktaildb"
	"github.com/discochess/barback/internal/remote/transport"
	"github.com/discochess/barback/internal/stats"
	"github.com/discochess/barback/internal/store"
	"github.com/discochess/barback/internal/store/snapstore"
)

// Defaults used when the corresponding option is not given.
const (
	DefaultValidity   = 24 * time.Hour
	DefaultRetention  = 200
	DefaultFetchLimit = 50
)

// Option configures a Client.
type Option interface {
	apply(*options)
}

// options holds the client configuration.
type options struct {
	store             store.Store
	catalog           remote.Catalog
	images            remote.ImageSearcher
	connectivity      connectivity.Checker
	validity          time.Duration
	retention         int
	fetchLimit        int
	enrichConcurrency int
	stats             stats.Collector
	logger            *zap.Logger
	clock             func() time.Time
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		connectivity: connectivity.Static(true),
		validity:     DefaultValidity,
		retention:    DefaultRetention,
		fetchLimit:   DefaultFetchLimit,
		stats:        stats.NewNoop(),
		logger:       zap.NewNop(),
		clock:        time.Now,
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithStore sets the cache store. The client closes it on Close.
func WithStore(s store.Store) Option {
	return optionFunc(func(o *options) {
		o.store = s
	})
}

// WithCatalog sets the remote cocktail catalog.
func WithCatalog(c remote.Catalog) Option {
	return optionFunc(func(o *options) {
		o.catalog = c
	})
}

// WithImageSearcher sets the remote image search used for enrichment.
func WithImageSearcher(s remote.ImageSearcher) Option {
	return optionFunc(func(o *options) {
		o.images = s
	})
}

// WithConnectivity sets the online check. If not set, the client assumes it
// is always online.
func WithConnectivity(c connectivity.Checker) Option {
	return optionFunc(func(o *options) {
		o.connectivity = c
	})
}

// WithValidity sets how long fetched cocktails are served without refreshing.
// Default is 24h.
func WithValidity(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.validity = d
	})
}

// WithRetention sets how many of the most recently accessed cocktails are kept
// after a fetch. Default is 200.
func WithRetention(n int) Option {
	return optionFunc(func(o *options) {
		o.retention = n
	})
}

// WithFetchLimit sets the default number of cocktails requested from the
// catalog when a call passes a limit of zero. Default is 50.
func WithFetchLimit(n int) Option {
	return optionFunc(func(o *options) {
		o.fetchLimit = n
	})
}

// WithEnrichConcurrency caps concurrent image resolutions. Zero, the default,
// is unbounded.
func WithEnrichConcurrency(n int) Option {
	return optionFunc(func(o *options) {
		o.enrichConcurrency = n
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithClock sets the time source used for cache age.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		o.clock = now
	})
}

// WithCocktailDB uses TheCocktailDB for both the catalog and image search,
// with the default transport settings.
func WithCocktailDB() Option {
	db := cocktaildb.New(transport.New("cocktaildb",
		transport.WithRateLimit(5, 5),
		transport.WithBreaker(5, 30*time.Second),
	))
	return optionFunc(func(o *options) {
		o.catalog = db
		o.images = db
	})
}

// WithCacheDir persists the cache as a zstd-compressed snapshot in dir,
// creating the directory if needed. Any existing snapshot is loaded.
// This is the recommended way to create a client with a local cache.
func WithCacheDir(ctx context.Context, dir string) (Option, error) {
	bucket, err := fileblob.New(dir)
	if err != nil {
		return nil, fmt.Errorf("opening cache dir: %w", err)
	}

	st, err := snapstore.Open(ctx, bucket, snapstore.WithCodec(zstdcodec.New()))
	if err != nil {
		bucket.Close()
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	return optionFunc(func(o *options) {
		o.store = st
	}), nil
}
