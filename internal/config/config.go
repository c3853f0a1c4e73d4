// Package config defines the YAML configuration of the barback command.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Log          LogConfig          `yaml:"log"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	Images       ImagesConfig       `yaml:"images"`
	Remote       RemoteConfig       `yaml:"remote"`
	Cache        CacheConfig        `yaml:"cache"`
	Enrich       EnrichConfig       `yaml:"enrich"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // empty logs to stderr
	// Rotation settings, used only with File.
	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
	MaxAgeDays int `yaml:"max_age_days"`
}

// Catalog providers.
const (
	ProviderCocktailDB = "cocktaildb"
	ProviderNinjas     = "ninjas"
)

// CatalogConfig selects where cocktail lists come from.
type CatalogConfig struct {
	Provider string   `yaml:"provider"`
	BaseURL  string   `yaml:"base_url"`
	APIKey   string   `yaml:"api_key"`
	Seeds    []string `yaml:"seeds"` // ninjas only
}

// ImagesConfig configures the image search API.
type ImagesConfig struct {
	BaseURL string `yaml:"base_url"`
}

// RemoteConfig configures the HTTP transport shared by the adapters.
type RemoteConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      uint64        `yaml:"max_retries"`
	RatePerSecond   float64       `yaml:"rate_per_second"` // 0 disables limiting
	Burst           int           `yaml:"burst"`
	BreakerFailures uint32        `yaml:"breaker_failures"` // 0 disables the breaker
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

// Cache backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendGCS    = "gcs"
	BackendS3     = "s3"
	BackendRedis  = "redis"
)

// Snapshot compressions.
const (
	CompressionZstd = "zstd"
	CompressionGzip = "gzip"
	CompressionNone = "none"
)

// CacheConfig configures the record store.
type CacheConfig struct {
	Backend string `yaml:"backend"`

	// File backend.
	Dir string `yaml:"dir"`

	// GCS and S3 backends.
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	// Redis backend. Prefix is reused as the key prefix.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Snapshot backends.
	Key              string `yaml:"key"`
	Compression      string `yaml:"compression"`
	CompressionLevel string `yaml:"compression_level"` // fastest, default or best

	Validity        time.Duration `yaml:"validity"`
	Retention       int           `yaml:"retention"`
	LookupCacheSize int           `yaml:"lookup_cache_size"` // 0 disables the LRU
	FetchLimit      int           `yaml:"fetch_limit"`
}

// EnrichConfig configures image enrichment.
type EnrichConfig struct {
	Concurrency int `yaml:"concurrency"` // 0 is unbounded
}

// ConnectivityConfig configures the online check.
type ConnectivityConfig struct {
	ProbeAddr    string        `yaml:"probe_addr"`
	Timeout      time.Duration `yaml:"timeout"`
	AssumeOnline bool          `yaml:"assume_online"` // skip probing
}

// Metrics collectors.
const (
	CollectorNoop       = "noop"
	CollectorLog        = "log"
	CollectorPrometheus = "prometheus"
)

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	Collector string `yaml:"collector"`
	Addr      string `yaml:"addr"` // listen address of /metrics for serve
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Catalog: CatalogConfig{
			Provider: ProviderCocktailDB,
		},
		Remote: RemoteConfig{
			Timeout:         10 * time.Second,
			MaxRetries:      3,
			RatePerSecond:   5,
			Burst:           5,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Cache: CacheConfig{
			Backend:          BackendFile,
			Dir:              defaultCacheDir(),
			Prefix:           "barback/",
			RedisAddr:        "localhost:6379",
			Compression:      CompressionZstd,
			CompressionLevel: "default",
			Validity:         24 * time.Hour,
			Retention:        200,
			LookupCacheSize:  128,
			FetchLimit:       50,
		},
		Enrich: EnrichConfig{
			Concurrency: 8,
		},
		Connectivity: ConnectivityConfig{
			ProbeAddr: "1.1.1.1:53",
			Timeout:   2 * time.Second,
		},
		Metrics: MetricsConfig{
			Collector: CollectorLog,
			Addr:      ":9464",
		},
	}
}
