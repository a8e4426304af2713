package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FUEL_LOCATION", "HTTP_ADDR", "STORAGE_DRIVER", "POSTGRES_DSN", "CLICKHOUSE_DSN",
		"SQLITE_PATH", "BATCH_SIZE", "INGEST_SOURCE", "INGEST_SCHEDULE", "INGEST_DELAY",
		"FEED_ENDPOINT", "INGEST_CONCURRENCY", "RUN_ON_START", "STEPS_PER_HOUR",
		"REDIS_URL", "CACHE_TTL", "METRICS_NAMESPACE",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestParseDelay(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1h30m", 90 * time.Minute},
		{"90s", 90 * time.Second},
		{"5000", 5 * time.Second},
		{" 250ms ", 250 * time.Millisecond},
		{"", DefaultDelay},
		{"soon", DefaultDelay},
		{"-5m", DefaultDelay},
		{"0", DefaultDelay},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDelay(tt.in), "ParseDelay(%q)", tt.in)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.Location)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 1000, cfg.Storage.BatchSize)
	assert.Equal(t, SourceHTTP, cfg.Ingestion.Source)
	assert.Equal(t, 4, cfg.Resample.StepsPerHour)
	assert.Equal(t, DefaultDelay, cfg.IngestionDelay())
	assert.Zero(t, cfg.CacheTTL())
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
location: UTC
storage:
  driver: sqlite
  sqlite_path: /tmp/prices.db
ingestion:
  delay: 30m
  concurrency: 2
cache:
  redis_url: redis://localhost:6379/0
  ttl: 5m
`)
	t.Setenv("INGEST_DELAY", "2h")
	t.Setenv("HTTP_ADDR", ":9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "UTC", cfg.Location)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 2*time.Hour, cfg.IngestionDelay())
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, 2, cfg.Ingestion.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
}

func TestLoad_DriverInferredFromDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_DSN", "postgres://localhost/fuel")
	t.Setenv("FEED_ENDPOINT", "ws://localhost:9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, SourceFeed, cfg.Ingestion.Source)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "bad.yaml", "location: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Location = "Mars/Olympus"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Driver = DriverPostgres
	assert.ErrorContains(t, cfg.Validate(), "postgres_dsn")

	cfg = base()
	cfg.Storage.Driver = "oracle"
	assert.ErrorContains(t, cfg.Validate(), "oracle")

	cfg = base()
	cfg.Ingestion.Source = SourceFeed
	assert.ErrorContains(t, cfg.Validate(), "feed_endpoint")

	cfg = base()
	cfg.Resample.StepsPerHour = 7
	assert.ErrorContains(t, cfg.Validate(), "steps_per_hour")
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, ".env", "INGEST_DELAY=45m\n")
	t.Cleanup(func() { os.Unsetenv("INGEST_DELAY") })
	os.Unsetenv("INGEST_DELAY")

	assert.Equal(t, p, LoadEnv(nil, filepath.Join(t.TempDir(), "none"), p))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.IngestionDelay())

	assert.Empty(t, LoadEnv(nil, filepath.Join(t.TempDir(), "none")))
}
