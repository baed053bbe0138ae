package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity defines the maximum number of fresh entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0 and not above Capacity.
	NumShards int

	// TTL is how long a fetched entry is retained before eviction.
	TTL time.Duration

	// StaleTime is how long a fetched value counts as fresh.
	// Must be greater than 0 and not above TTL.
	StaleTime time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EarlyRefresh configures background revalidation of stale entries.
	// If nil, stale entries are only refetched once they expire.
	EarlyRefresh *EarlyRefreshConfig

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig configures early refresh behavior.
type EarlyRefreshConfig struct {
	// MinAsyncRefreshTime is the minimum age after which a read triggers a background refresh
	MinAsyncRefreshTime time.Duration

	// MaxAsyncRefreshTime is the maximum age after which a read triggers a background refresh
	MaxAsyncRefreshTime time.Duration

	// SyncRefreshTime is the age at which a read blocks on the refresh
	SyncRefreshTime time.Duration

	// RetryBaseDelay is the base delay for retry attempts when a refresh fails
	RetryBaseDelay time.Duration
}

// DefaultConfig returns a Config where data stays fresh for five minutes and
// is then revalidated in the background while the cached value is served.
func DefaultConfig() Config {
	return Config{
		Capacity:           1000,
		NumShards:          16,
		TTL:                30 * time.Minute,
		StaleTime:          5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 5 * time.Minute,
			MaxAsyncRefreshTime: 5*time.Minute + 30*time.Second,
			SyncRefreshTime:     20 * time.Minute,
			RetryBaseDelay:      time.Second,
		},
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.NumShards > c.Capacity {
		return &ConfigError{Field: "NumShards", Message: "must not exceed Capacity"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.StaleTime <= 0 {
		return &ConfigError{Field: "StaleTime", Message: "must be greater than 0"}
	}

	if c.StaleTime > c.TTL {
		return &ConfigError{Field: "StaleTime", Message: "must not exceed TTL"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if r := c.EarlyRefresh; r != nil {
		if r.MinAsyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.MinAsyncRefreshTime", Message: "must be non-negative"}
		}
		if r.MaxAsyncRefreshTime < r.MinAsyncRefreshTime {
			return &ConfigError{Field: "EarlyRefresh.MaxAsyncRefreshTime", Message: "must not be below MinAsyncRefreshTime"}
		}
		if r.MaxAsyncRefreshTime > c.TTL {
			return &ConfigError{Field: "EarlyRefresh.MaxAsyncRefreshTime", Message: "must not exceed TTL"}
		}
		if r.SyncRefreshTime < 0 || r.SyncRefreshTime > c.TTL {
			return &ConfigError{Field: "EarlyRefresh.SyncRefreshTime", Message: "must be between 0 and TTL"}
		}
		if r.RetryBaseDelay < 0 {
			return &ConfigError{Field: "EarlyRefresh.RetryBaseDelay", Message: "must be non-negative"}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
