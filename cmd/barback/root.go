package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/barback"
	"github.com/discochess/barback/fx/diskbarbackfx"
	"github.com/discochess/barback/internal/config"
	"github.com/discochess/barback/internal/connectivity"
	"github.com/discochess/barback/internal/logging"
)

var (
	// Global flags.
	configPath string
	verbose    bool
	offline    bool
)

var rootCmd = &cobra.Command{
	Use:   "barback",
	Short: "Offline-first cocktail catalog with image lookup",
	Long: `Barback keeps a local cache of cocktails fetched from TheCocktailDB or
API Ninjas, with images resolved by fuzzy name matching. The cache is served
as is while it is fresh or the network is down.

Examples:
  # List cocktails, refreshing the cache when stale
  barback list

  # Search the cache
  barback search lime

  # Resolve an image for a free-text name
  barback resolve "Spicy Margarita (frozen)"

  # Keep the cache fresh and expose metrics
  barback serve --interval 1h`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "never contact the network")
}

// session is a started application.
type session struct {
	cfg      *config.Config
	app      *fx.App
	client   *barback.Client
	registry *prometheus.Registry
	logger   *zap.Logger
}

// openSession loads the config and starts the application it describes.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	var logOpts []logging.Option
	if cfg.Log.File != "" {
		logOpts = append(logOpts, logging.WithFile(logging.Rotation{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		}))
	}
	log, err := logging.New(level, logOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	s := &session{cfg: cfg, logger: log}
	opts := []fx.Option{
		fx.NopLogger,
		fx.Supply(cfg, log),
		diskbarbackfx.Module,
		fx.Populate(&s.client, &s.registry),
	}
	if offline {
		opts = append(opts, fx.Decorate(func(connectivity.Checker) connectivity.Checker {
			return connectivity.Static(false)
		}))
	}

	s.app = fx.New(opts...)
	if err := s.app.Start(ctx); err != nil {
		log.Sync()
		return nil, fmt.Errorf("starting: %w", err)
	}
	return s, nil
}

// Close stops the application, closing the client.
func (s *session) Close() error {
	err := s.app.Stop(context.Background())
	s.logger.Sync()
	return err
}

// withSession runs fn with a started session, closing it afterwards.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	return fn(ctx, s)
}
