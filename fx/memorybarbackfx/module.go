// Package memorybarbackfx provides an fx module for an in-memory barback client.
// Useful for testing.
package memorybarbackfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/barback"
	"github.com/discochess/barback/internal/remote/memremote"
	"github.com/discochess/barback/internal/stats"
	"github.com/discochess/barback/internal/stats/logger"
	"github.com/discochess/barback/internal/store/memstore"
)

// Module provides an in-memory barback client for testing.
// Requires a *zap.Logger to be provided.
var Module = fx.Module("memorybarback",
	fx.Provide(
		newStatsCollector,
		newMemStore,
		memremote.New,
		newClient,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("barback.stats"))
}

func newMemStore() *memstore.Store {
	return memstore.New()
}

// Params holds dependencies for creating the client.
type Params struct {
	fx.In

	Logger    *zap.Logger
	Collector stats.Collector
	Store     *memstore.Store
	Remote    *memremote.Remote
	Lifecycle fx.Lifecycle
}

// Result holds the provided client.
type Result struct {
	fx.Out

	Client *barback.Client
}

func newClient(p Params) (Result, error) {
	client, err := barback.New(
		barback.WithStore(p.Store),
		barback.WithCatalog(p.Remote),
		barback.WithImageSearcher(p.Remote),
		barback.WithStats(p.Collector),
		barback.WithLogger(p.Logger.Named("barback")),
	)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return Result{Client: client}, nil
}
