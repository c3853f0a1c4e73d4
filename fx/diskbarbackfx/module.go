// Package diskbarbackfx provides an fx module for a barback client built from
// a config.Config. With the default config the cache is a zstd snapshot on
// local disk and cocktails come from TheCocktailDB.
package diskbarbackfx

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/barback"
	"github.com/discochess/barback/internal/blob"
	"github.com/discochess/barback/internal/blob/fileblob"
	"github.com/discochess/barback/internal/blob/gcsblob"
	"github.com/discochess/barback/internal/blob/s3blob"
	"github.com/discochess/barback/internal/codec"
	"github.com/discochess/barback/internal/codec/gzipcodec"
	"github.com/discochess/barback/internal/codec/noopcodec"
	"github.com/discochess/barback/internal/codec/zstdcodec"
	"github.com/discochess/barback/internal/config"
	"github.com/discochess/barback/internal/connectivity"
	"github.com/discochess/barback/internal/remote"
	"github.com/discochess/barback/internal/remote/cocktaildb"
	"github.com/discochess/barback/internal/remote/ninjas"
	"github.com/discochess/barback/internal/remote/transport"
	"github.com/discochess/barback/internal/stats"
	"github.com/discochess/barback/internal/stats/logger"
	promstats "github.com/discochess/barback/internal/stats/prometheus"
	"github.com/discochess/barback/internal/store"
	"github.com/discochess/barback/internal/store/cachedstore"
	"github.com/discochess/barback/internal/store/cachedstore/cachestrategy/lru"
	"github.com/discochess/barback/internal/store/cachedstore/memory"
	"github.com/discochess/barback/internal/store/memstore"
	"github.com/discochess/barback/internal/store/redisstore"
	"github.com/discochess/barback/internal/store/snapstore"
)

// Module provides a config-driven barback client.
// Requires a *config.Config and a *zap.Logger to be provided.
var Module = fx.Module("diskbarback",
	fx.Provide(
		prometheus.NewRegistry,
		newStatsCollector,
		newStore,
		newRemotes,
		newConnectivity,
		newClient,
	),
)

func newStatsCollector(cfg *config.Config, log *zap.Logger, reg *prometheus.Registry) stats.Collector {
	switch cfg.Metrics.Collector {
	case config.CollectorPrometheus:
		return promstats.New(reg)
	case config.CollectorLog:
		return logger.New(log.Named("barback.stats"))
	default:
		return stats.NewNoop()
	}
}

// StoreParams holds dependencies for creating the store.
type StoreParams struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Collector stats.Collector
}

func newStore(p StoreParams) (store.Store, error) {
	ctx := context.Background()
	c := p.Config.Cache
	log := p.Logger.Named("store")

	var base store.Store
	switch c.Backend {
	case config.BackendMemory:
		base = memstore.New()
	case config.BackendRedis:
		st := redisstore.New(redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		}), redisstore.WithPrefix(c.Prefix), redisstore.WithLogger(log))
		if err := st.Ping(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", c.RedisAddr, err)
		}
		base = st
	default:
		bucket, err := newBucket(ctx, c)
		if err != nil {
			return nil, err
		}
		cd, err := newCodec(c.Compression, c.CompressionLevel)
		if err != nil {
			bucket.Close()
			return nil, err
		}
		opts := []snapstore.Option{
			snapstore.WithCodec(cd),
			snapstore.WithLogger(log),
		}
		if c.Key != "" {
			opts = append(opts, snapstore.WithName(c.Key))
		}
		st, err := snapstore.Open(ctx, bucket, opts...)
		if err != nil {
			bucket.Close()
			return nil, err
		}
		base = st
	}

	if c.LookupCacheSize <= 0 {
		return base, nil
	}
	strategy, err := lru.New(c.LookupCacheSize)
	if err != nil {
		base.Close()
		return nil, fmt.Errorf("creating LRU strategy: %w", err)
	}
	return cachedstore.New(base, memory.New(strategy, p.Collector)), nil
}

func newBucket(ctx context.Context, c config.CacheConfig) (blob.Bucket, error) {
	switch c.Backend {
	case config.BackendGCS:
		return gcsblob.New(ctx, c.Bucket, gcsblob.WithPrefix(c.Prefix))
	case config.BackendS3:
		return s3blob.New(ctx, c.Bucket,
			s3blob.WithPrefix(c.Prefix),
			s3blob.WithRegion(c.Region),
			s3blob.WithEndpoint(c.Endpoint),
		)
	default:
		return fileblob.New(c.Dir)
	}
}

func newCodec(name, level string) (codec.Codec, error) {
	l, err := codec.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	switch name {
	case config.CompressionGzip:
		return gzipcodec.New(gzipcodec.WithLevel(l)), nil
	case config.CompressionNone:
		return noopcodec.New(), nil
	default:
		return zstdcodec.New(zstdcodec.WithLevel(l)), nil
	}
}

// Remotes holds the catalog and image search clients.
type Remotes struct {
	fx.Out

	Catalog remote.Catalog
	Images  remote.ImageSearcher
}

func newRemotes(cfg *config.Config, log *zap.Logger) Remotes {
	r := cfg.Remote
	newTransport := func(name string) *transport.Client {
		return transport.New(name,
			transport.WithTimeout(r.Timeout),
			transport.WithMaxRetries(r.MaxRetries),
			transport.WithRateLimit(r.RatePerSecond, r.Burst),
			transport.WithBreaker(r.BreakerFailures, r.BreakerTimeout),
			transport.WithLogger(log.Named("transport."+name)),
		)
	}

	imageOpts := []cocktaildb.Option{cocktaildb.WithLogger(log.Named("cocktaildb"))}
	if cfg.Images.BaseURL != "" {
		imageOpts = append(imageOpts, cocktaildb.WithBaseURL(cfg.Images.BaseURL))
	}
	images := cocktaildb.New(newTransport("cocktaildb"), imageOpts...)

	out := Remotes{Images: images, Catalog: images}
	switch cfg.Catalog.Provider {
	case config.ProviderNinjas:
		opts := []ninjas.Option{ninjas.WithLogger(log.Named("ninjas"))}
		if cfg.Catalog.BaseURL != "" {
			opts = append(opts, ninjas.WithBaseURL(cfg.Catalog.BaseURL))
		}
		if len(cfg.Catalog.Seeds) > 0 {
			opts = append(opts, ninjas.WithSeeds(cfg.Catalog.Seeds))
		}
		out.Catalog = ninjas.New(newTransport("ninjas"), cfg.Catalog.APIKey, opts...)
	default:
		if cfg.Catalog.BaseURL != "" && cfg.Catalog.BaseURL != cfg.Images.BaseURL {
			out.Catalog = cocktaildb.New(newTransport("cocktaildb.catalog"),
				cocktaildb.WithBaseURL(cfg.Catalog.BaseURL),
				cocktaildb.WithLogger(log.Named("cocktaildb")),
			)
		}
	}
	return out
}

func newConnectivity(cfg *config.Config, log *zap.Logger) connectivity.Checker {
	c := cfg.Connectivity
	if c.AssumeOnline {
		return connectivity.Static(true)
	}
	return connectivity.NewProbe(
		connectivity.WithAddr(c.ProbeAddr),
		connectivity.WithTimeout(c.Timeout),
		connectivity.WithLogger(log.Named("connectivity")),
	)
}

// Params holds dependencies for creating the client.
type Params struct {
	fx.In

	Config       *config.Config
	Logger       *zap.Logger
	Collector    stats.Collector
	Store        store.Store
	Catalog      remote.Catalog
	Images       remote.ImageSearcher
	Connectivity connectivity.Checker
	Lifecycle    fx.Lifecycle
}

// Result holds the provided client.
type Result struct {
	fx.Out

	Client *barback.Client
}

func newClient(p Params) (Result, error) {
	c := p.Config.Cache
	client, err := barback.New(
		barback.WithStore(p.Store),
		barback.WithCatalog(p.Catalog),
		barback.WithImageSearcher(p.Images),
		barback.WithConnectivity(p.Connectivity),
		barback.WithValidity(c.Validity),
		barback.WithRetention(c.Retention),
		barback.WithFetchLimit(c.FetchLimit),
		barback.WithEnrichConcurrency(p.Config.Enrich.Concurrency),
		barback.WithStats(p.Collector),
		barback.WithLogger(p.Logger.Named("barback")),
	)
	if err != nil {
		p.Store.Close()
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if l, ok := p.Collector.(*logger.Collector); ok {
				l.Flush()
			}
			return client.Close()
		},
	})

	return Result{Client: client}, nil
}
