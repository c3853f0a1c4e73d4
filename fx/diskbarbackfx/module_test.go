package diskbarbackfx

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/discochess/barback"
	"github.com/discochess/barback/internal/config"
	"github.com/discochess/barback/internal/stats"
	"github.com/discochess/barback/internal/store"
	"github.com/discochess/barback/internal/store/cachedstore"
)

func TestModule_Backends(t *testing.T) {
	tests := []struct {
		name       string
		backend    string
		lookup     int
		wantCached bool
	}{
		{"memory", config.BackendMemory, 0, false},
		{"file", config.BackendFile, 0, false},
		{"file with lookup cache", config.BackendFile, 16, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Cache.Backend = tt.backend
			cfg.Cache.Dir = t.TempDir()
			cfg.Cache.LookupCacheSize = tt.lookup
			cfg.Connectivity.AssumeOnline = true
			cfg.Metrics.Collector = config.CollectorNoop

			var client *barback.Client
			var st store.Store
			app := fxtest.New(t,
				fx.Supply(cfg, zap.NewNop()),
				Module,
				fx.Populate(&client, &st),
			)
			app.RequireStart()

			if _, ok := st.(*cachedstore.Store); ok != tt.wantCached {
				t.Errorf("store is %T, want cached = %v", st, tt.wantCached)
			}
			info, err := client.CacheInfo(context.Background())
			if err != nil {
				t.Fatalf("CacheInfo() error = %v", err)
			}
			if info.State != barback.FreshnessEmpty {
				t.Errorf("CacheInfo().State = %v, want empty", info.State)
			}

			app.RequireStop()
			if _, err := client.CacheInfo(context.Background()); err == nil {
				t.Error("CacheInfo() after stop error = nil, want ErrClosed")
			}
		})
	}
}

func TestNewStatsCollector(t *testing.T) {
	tests := []struct {
		collector string
		want      string
	}{
		{config.CollectorNoop, "*stats.Noop"},
		{config.CollectorLog, "*logger.Collector"},
		{config.CollectorPrometheus, "*prometheus.Collector"},
	}
	for _, tt := range tests {
		t.Run(tt.collector, func(t *testing.T) {
			cfg := config.Default()
			cfg.Metrics.Collector = tt.collector

			var c stats.Collector
			app := fxtest.New(t,
				fx.Supply(cfg, zap.NewNop()),
				fx.Provide(newStatsCollector, prometheus.NewRegistry),
				fx.Populate(&c),
			)
			app.RequireStart()
			defer app.RequireStop()

			if got := fmt.Sprintf("%T", c); got != tt.want {
				t.Errorf("collector = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewCodec(t *testing.T) {
	tests := []struct {
		compression string
		level       string
		wantExt     string
		wantErr     bool
	}{
		{config.CompressionZstd, "default", "zst", false},
		{config.CompressionZstd, "best", "zst", false},
		{config.CompressionGzip, "fastest", "gz", false},
		{config.CompressionNone, "", "", false},
		{config.CompressionGzip, "max", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.compression+"/"+tt.level, func(t *testing.T) {
			c, err := newCodec(tt.compression, tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newCodec() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := c.Extension(); got != tt.wantExt {
				t.Errorf("Extension() = %q, want %q", got, tt.wantExt)
			}
			payload := []byte(`{"version":1,"records":[{"id":"11007","name":"Margarita"}]}`)
			enc, err := c.Encode(payload)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			dec, err := c.Decode(enc)
			if err != nil || string(dec) != string(payload) {
				t.Errorf("Decode() = %q, %v", dec, err)
			}
		})
	}
}
