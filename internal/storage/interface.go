// Package storage provides counter storage backends for rate limiting.
// It defines a single abstraction over fixed-window counters with expiry
// that can be implemented by different backends such as process memory,
// Redis, or SQL databases.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned when an operation is attempted on a closed store.
var ErrClosed = errors.New("counter store is closed")

// Counter is the state of one rate-limit window for one key. A counter is
// live until ResetTime; after that it is treated as absent whether or not
// the backend has physically removed it.
type Counter struct {
	// Count is the number of requests observed in the current window.
	Count int64

	// ResetTime is when the current window ends. It is fixed when the
	// window opens and never moves on subsequent increments.
	ResetTime time.Time
}

// Store defines the interface for fixed-window counter persistence.
// Implementations must be safe for concurrent use, and Increment must be
// atomic with respect to concurrent callers sharing the same key: two
// simultaneous increments must never observe the same pre-increment count.
type Store interface {
	// Increment advances the counter for key by one. If no live counter
	// exists, a new window is opened with Count=1 and
	// ResetTime=now+window. Otherwise the existing window's count is
	// incremented and its ResetTime is returned unchanged.
	Increment(ctx context.Context, key string, window time.Duration) (Counter, error)

	// Get returns the live counter for key. The second return value is
	// false when no counter exists or the existing one has expired.
	Get(ctx context.Context, key string) (Counter, bool, error)

	// Decrement reduces the counter for key by one, flooring at zero.
	// It is a no-op for absent or expired counters. Used to un-count
	// requests excluded after the fact (skip-successful/skip-failed).
	Decrement(ctx context.Context, key string) error

	// Close releases backend resources and stops background tasks.
	Close() error
}

// Config holds configuration for counter store backends.
type Config struct {
	// Type specifies the backend type (memory, redis, sqlite, postgres).
	Type string `json:"type" yaml:"type"`

	// ConnectionString is used for database backends.
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`

	// RedisAddr, RedisPassword, RedisDB and RedisPoolSize configure the
	// Redis backend. A zero pool size uses the client default.
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	RedisPoolSize int    `json:"redis_pool_size,omitempty" yaml:"redis_pool_size,omitempty"`

	// SweepInterval is how often single-host backends drop physically
	// stale counters. Zero selects the default of five minutes.
	SweepInterval time.Duration `json:"sweep_interval,omitempty" yaml:"sweep_interval,omitempty"`
}
