package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the cache fresh and serve metrics",
	Long: `Sync the cache on a fixed interval until interrupted, serving
Prometheus metrics on the configured address. Set metrics.collector to
prometheus to populate them.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveInterval time.Duration

func init() {
	serveCmd.Flags().DurationVar(&serveInterval, "interval", time.Hour, "time between syncs")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveInterval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", serveInterval)
	}

	return withSession(cmd, func(ctx context.Context, s *session) error {
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		srv := &http.Server{
			Addr:              s.cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()
		s.logger.Info("serving metrics",
			zap.String("addr", srv.Addr),
			zap.Duration("interval", serveInterval),
		)

		ticker := time.NewTicker(serveInterval)
		defer ticker.Stop()

		for {
			syncOnce(ctx, s)
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err, ok := <-serveErr:
				if ok {
					return fmt.Errorf("serving metrics: %w", err)
				}
				return nil
			case <-ticker.C:
			}
		}
	})
}

func syncOnce(ctx context.Context, s *session) {
	n, err := s.client.Sync(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("sync failed", zap.Error(err))
		}
		return
	}
	s.logger.Info("synced", zap.Int("count", n))
}
