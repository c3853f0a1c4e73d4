package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Cache.Validity != 24*time.Hour {
		t.Errorf("validity = %v, want 24h", cfg.Cache.Validity)
	}
	if cfg.Cache.Retention != 200 {
		t.Errorf("retention = %d, want 200", cfg.Cache.Retention)
	}
	if cfg.Cache.FetchLimit != 50 {
		t.Errorf("fetch_limit = %d, want 50", cfg.Cache.FetchLimit)
	}
	if cfg.Catalog.Provider != ProviderCocktailDB {
		t.Errorf("provider = %q, want %q", cfg.Catalog.Provider, ProviderCocktailDB)
	}
}

func TestParse(t *testing.T) {
	data := `
log:
  level: debug
catalog:
  provider: ninjas
  api_key: secret
  seeds: [margarita, negroni]
remote:
  timeout: 3s
  max_retries: 1
cache:
  backend: s3
  bucket: drinks
  region: eu-west-1
  compression: gzip
  compression_level: best
  validity: 6h
  retention: 20
`
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if got := strings.Join(cfg.Catalog.Seeds, ","); got != "margarita,negroni" {
		t.Errorf("seeds = %q", got)
	}
	if cfg.Remote.Timeout != 3*time.Second || cfg.Remote.MaxRetries != 1 {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if cfg.Cache.Backend != BackendS3 || cfg.Cache.Bucket != "drinks" || cfg.Cache.Region != "eu-west-1" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.Validity != 6*time.Hour || cfg.Cache.Retention != 20 {
		t.Errorf("validity, retention = %v, %d", cfg.Cache.Validity, cfg.Cache.Retention)
	}
	if cfg.Cache.Compression != CompressionGzip || cfg.Cache.CompressionLevel != "best" {
		t.Errorf("compression = %q level %q", cfg.Cache.Compression, cfg.Cache.CompressionLevel)
	}
	// Untouched sections keep their defaults.
	if cfg.Cache.FetchLimit != 50 || cfg.Remote.Burst != 5 {
		t.Errorf("defaults lost: fetch_limit=%d burst=%d", cfg.Cache.FetchLimit, cfg.Remote.Burst)
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("BARBACK_TEST_KEY", "from-env")

	cfg, err := Parse([]byte(`
catalog:
  provider: ninjas
  api_key: ${BARBACK_TEST_KEY}
images:
  base_url: ${BARBACK_TEST_UNSET}
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Catalog.APIKey != "from-env" {
		t.Errorf("api_key = %q, want from-env", cfg.Catalog.APIKey)
	}
	if cfg.Images.BaseURL != "${BARBACK_TEST_UNSET}" {
		t.Errorf("base_url = %q, want the unexpanded reference", cfg.Images.BaseURL)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"log level", "log:\n  level: loud\n", "log level"},
		{"provider", "catalog:\n  provider: mystery\n", "catalog provider"},
		{"ninjas without key", "catalog:\n  provider: ninjas\n", "api_key"},
		{"backend", "cache:\n  backend: tape\n", "cache backend"},
		{"bucket", "cache:\n  backend: gcs\n", "bucket"},
		{"compression", "cache:\n  compression: lz4\n", "compression"},
		{"compression level", "cache:\n  compression_level: 11\n", "compression_level"},
		{"retention", "cache:\n  retention: 0\n", "retention"},
		{"validity", "cache:\n  validity: 0s\n", "validity"},
		{"burst", "remote:\n  burst: 0\n", "burst"},
		{"collector", "metrics:\n  collector: statsd\n", "metrics collector"},
		{"syntax", "cache: [\n", "parsing YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barback.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  backend: memory\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cache.Backend != BackendMemory {
		t.Errorf("backend = %q, want memory", cfg.Cache.Backend)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}
