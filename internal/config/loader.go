package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/discochess/barback/internal/codec"
)

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses a configuration file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, Validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes over the defaults.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values. Unset
// variables are left as is.
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}

// Validate checks cfg for errors.
func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", cfg.Log.Level)
	}

	switch cfg.Catalog.Provider {
	case ProviderCocktailDB:
	case ProviderNinjas:
		if cfg.Catalog.APIKey == "" {
			return fmt.Errorf("catalog provider %s requires api_key", ProviderNinjas)
		}
	default:
		return fmt.Errorf("invalid catalog provider: %q", cfg.Catalog.Provider)
	}

	if cfg.Remote.Timeout <= 0 {
		return fmt.Errorf("remote timeout must be positive")
	}
	if cfg.Remote.RatePerSecond < 0 {
		return fmt.Errorf("remote rate_per_second must not be negative")
	}
	if cfg.Remote.RatePerSecond > 0 && cfg.Remote.Burst < 1 {
		return fmt.Errorf("remote burst must be at least 1 when rate limiting")
	}

	if err := validateCache(&cfg.Cache); err != nil {
		return err
	}

	if cfg.Enrich.Concurrency < 0 {
		return fmt.Errorf("enrich concurrency must not be negative")
	}

	switch cfg.Metrics.Collector {
	case CollectorNoop, CollectorLog, CollectorPrometheus:
	default:
		return fmt.Errorf("invalid metrics collector: %q", cfg.Metrics.Collector)
	}
	return nil
}

func validateCache(c *CacheConfig) error {
	switch c.Backend {
	case BackendMemory, BackendRedis:
	case BackendFile:
		if c.Dir == "" {
			return fmt.Errorf("cache backend %s requires dir", c.Backend)
		}
	case BackendGCS, BackendS3:
		if c.Bucket == "" {
			return fmt.Errorf("cache backend %s requires bucket", c.Backend)
		}
	default:
		return fmt.Errorf("invalid cache backend: %q", c.Backend)
	}

	switch c.Compression {
	case CompressionZstd, CompressionGzip, CompressionNone:
	default:
		return fmt.Errorf("invalid cache compression: %q", c.Compression)
	}
	if _, err := codec.ParseLevel(c.CompressionLevel); err != nil {
		return fmt.Errorf("cache compression_level: %w", err)
	}

	if c.Validity <= 0 {
		return fmt.Errorf("cache validity must be positive")
	}
	if c.Retention < 1 {
		return fmt.Errorf("cache retention must be at least 1")
	}
	if c.FetchLimit < 1 {
		return fmt.Errorf("cache fetch_limit must be at least 1")
	}
	if c.LookupCacheSize < 0 {
		return fmt.Errorf("cache lookup_cache_size must not be negative")
	}
	return nil
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "barback")
	}
	return filepath.Join(dir, "barback")
}
