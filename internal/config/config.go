// Package config loads service configuration from a YAML file, an optional
// .env file and environment variables, in increasing precedence.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultDelay is the ingestion interval used when none or an invalid one is
// configured.
const DefaultDelay = time.Hour

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Ingestion sources.
const (
	SourceStatic = "static"
	SourceHTTP   = "http"
	SourceFeed   = "feed"
)

// Config holds all application configuration.
type Config struct {
	// Location is the IANA time zone used for day boundaries and captions.
	Location string `yaml:"location"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Storage struct {
		Driver        string `yaml:"driver"`
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickhouseDSN string `yaml:"clickhouse_dsn"` // optional price history mirror
		SQLitePath    string `yaml:"sqlite_path"`
		BatchSize     int    `yaml:"batch_size"`
	} `yaml:"storage"`

	Ingestion struct {
		Source       string `yaml:"source"`
		Schedule     string `yaml:"schedule"` // cron spec; overrides delay
		Delay        string `yaml:"delay"`    // "1h30m", "90s" or milliseconds
		FeedEndpoint string `yaml:"feed_endpoint"`
		UserAgent    string `yaml:"user_agent"`
		Concurrency  int    `yaml:"concurrency"`
		RunOnStart   bool   `yaml:"run_on_start"`
	} `yaml:"ingestion"`

	Resample struct {
		StepsPerHour int `yaml:"steps_per_hour"`
	} `yaml:"resample"`

	Cache struct {
		RedisURL string `yaml:"redis_url"`
		TTL      string `yaml:"ttl"`
	} `yaml:"cache"`

	Metrics struct {
		Namespace string `yaml:"namespace"`
	} `yaml:"metrics"`
}

// LoadEnv loads the first .env file found in paths into the process
// environment. Variables already set are kept. It reports the loaded path.
func LoadEnv(logger *log.Logger, paths ...string) string {
	if len(paths) == 0 {
		paths = []string{".env", "../.env", "../../.env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if logger != nil {
				logger.Printf("Failed to load %s: %v", p, err)
			}
			continue
		}
		if logger != nil {
			logger.Printf("Loaded .env from: %s", p)
		}
		return p
	}
	return ""
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("FUEL_LOCATION", &c.Location)
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("CLICKHOUSE_DSN", &c.Storage.ClickhouseDSN)
	str("SQLITE_PATH", &c.Storage.SQLitePath)
	num("BATCH_SIZE", &c.Storage.BatchSize)
	str("INGEST_SOURCE", &c.Ingestion.Source)
	str("INGEST_SCHEDULE", &c.Ingestion.Schedule)
	str("INGEST_DELAY", &c.Ingestion.Delay)
	str("FEED_ENDPOINT", &c.Ingestion.FeedEndpoint)
	num("INGEST_CONCURRENCY", &c.Ingestion.Concurrency)
	if v := os.Getenv("RUN_ON_START"); v != "" {
		c.Ingestion.RunOnStart, _ = strconv.ParseBool(v)
	}
	num("STEPS_PER_HOUR", &c.Resample.StepsPerHour)
	str("REDIS_URL", &c.Cache.RedisURL)
	str("CACHE_TTL", &c.Cache.TTL)
	str("METRICS_NAMESPACE", &c.Metrics.Namespace)
}

func (c *Config) applyDefaults() {
	if c.Location == "" {
		c.Location = "Europe/Berlin"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
		if c.Storage.PostgresDSN != "" {
			c.Storage.Driver = DriverPostgres
		} else if c.Storage.SQLitePath != "" {
			c.Storage.Driver = DriverSQLite
		}
	}
	if c.Storage.BatchSize <= 0 {
		c.Storage.BatchSize = 1000
	}
	if c.Ingestion.Source == "" {
		c.Ingestion.Source = SourceHTTP
		if c.Ingestion.FeedEndpoint != "" {
			c.Ingestion.Source = SourceFeed
		}
	}
	if c.Ingestion.Concurrency <= 0 {
		c.Ingestion.Concurrency = 8
	}
	if c.Resample.StepsPerHour <= 0 {
		c.Resample.StepsPerHour = 4
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := c.TimeLocation(); err != nil {
		return err
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for driver postgres")
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for driver sqlite")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Ingestion.Source {
	case SourceStatic, SourceHTTP:
	case SourceFeed:
		if c.Ingestion.FeedEndpoint == "" {
			return fmt.Errorf("ingestion.feed_endpoint is required for source feed")
		}
	default:
		return fmt.Errorf("unknown ingestion.source %q", c.Ingestion.Source)
	}
	if 3600%c.Resample.StepsPerHour != 0 {
		return fmt.Errorf("resample.steps_per_hour must divide 3600, got %d", c.Resample.StepsPerHour)
	}
	return nil
}

// TimeLocation loads the configured time zone.
func (c *Config) TimeLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("location %q: %w", c.Location, err)
	}
	return loc, nil
}

// IngestionDelay returns the parsed ingestion interval.
func (c *Config) IngestionDelay() time.Duration {
	return ParseDelay(c.Ingestion.Delay)
}

// CacheTTL returns the parsed cache TTL, or 0 for the cache default.
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTL == "" {
		return 0
	}
	d, err := parseDuration(c.Cache.TTL)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// ParseDelay parses a duration such as "1h30m" or "90s", or a plain number
// of milliseconds. Empty, invalid or non-positive input yields DefaultDelay.
func ParseDelay(s string) time.Duration {
	d, err := parseDuration(s)
	if err != nil || d <= 0 {
		return DefaultDelay
	}
	return d
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}
