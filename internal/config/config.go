// Package config loads the application configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/goliatone/kronos-sync/cache"
)

// Version is set at build time through -ldflags.
var Version = "dev"

// Config holds every setting of the sync layer.
type Config struct {
	// Calendar service
	APIURL      string
	APIToken    string
	HTTPTimeout time.Duration
	// ReadRetries is the number of attempts of a read; mutations never retry.
	ReadRetries int

	// Query cache
	StaleTime     time.Duration
	CacheTTL      time.Duration
	CacheCapacity int

	// Logging
	LogLevel  slog.Level
	LogFormat string
	// LogFile, when set, receives the logs through a rotating writer.
	LogFile string
}

// Load reads the KRONOS_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.APIURL = strings.TrimRight(getEnvDefault("KRONOS_API_URL", "http://localhost:8000"), "/")
	cfg.APIToken = os.Getenv("KRONOS_API_TOKEN")

	if cfg.HTTPTimeout, err = getEnvDuration("KRONOS_HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("KRONOS_HTTP_TIMEOUT: %w", err)
	}
	if cfg.ReadRetries, err = getEnvInt("KRONOS_READ_RETRIES", 3); err != nil {
		return nil, fmt.Errorf("KRONOS_READ_RETRIES: %w", err)
	}
	if cfg.StaleTime, err = getEnvDuration("KRONOS_STALE_TIME", 5*time.Minute); err != nil {
		return nil, fmt.Errorf("KRONOS_STALE_TIME: %w", err)
	}
	if cfg.CacheTTL, err = getEnvDuration("KRONOS_CACHE_TTL", 30*time.Minute); err != nil {
		return nil, fmt.Errorf("KRONOS_CACHE_TTL: %w", err)
	}
	if cfg.CacheCapacity, err = getEnvInt("KRONOS_CACHE_CAPACITY", 1000); err != nil {
		return nil, fmt.Errorf("KRONOS_CACHE_CAPACITY: %w", err)
	}

	if cfg.LogLevel, err = parseLogLevel(getEnvDefault("KRONOS_LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("KRONOS_LOG_LEVEL: %w", err)
	}
	cfg.LogFormat = strings.ToLower(getEnvDefault("KRONOS_LOG_FORMAT", "text"))
	cfg.LogFile = os.Getenv("KRONOS_LOG_FILE")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and formats.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIURL, validation.Required, is.URL),
		validation.Field(&c.HTTPTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.ReadRetries, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&c.StaleTime, validation.Required, validation.Min(time.Second), validation.Max(c.CacheTTL)),
		validation.Field(&c.CacheTTL, validation.Required),
		validation.Field(&c.CacheCapacity, validation.Required, validation.Min(1)),
		validation.Field(&c.LogFormat, validation.In("json", "text")),
	)
}

// CacheConfig derives the query cache settings. Background refresh starts
// once an entry is StaleTime old; when StaleTime leaves no room before the
// TTL, stale entries are refetched synchronously instead.
func (c *Config) CacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.Capacity = c.CacheCapacity
	if cfg.NumShards > cfg.Capacity {
		cfg.NumShards = cfg.Capacity
	}
	cfg.TTL = c.CacheTTL
	cfg.StaleTime = c.StaleTime

	jitter := c.StaleTime / 10
	if jitter <= 0 || c.StaleTime+jitter > c.CacheTTL {
		cfg.EarlyRefresh = nil
		return cfg
	}
	cfg.EarlyRefresh = &cache.EarlyRefreshConfig{
		MinAsyncRefreshTime: c.StaleTime,
		MaxAsyncRefreshTime: c.StaleTime + jitter,
		SyncRefreshTime:     c.CacheTTL * 2 / 3,
		RetryBaseDelay:      time.Second,
	}
	return cfg
}

func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", val)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q (use Go syntax: 30s, 5m, 1h)", val)
	}
	return d, nil
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid level %q, expected debug, info, warn or error", level)
	}
}
