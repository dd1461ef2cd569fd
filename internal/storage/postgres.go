package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS rate_limit_counters (
	key        TEXT PRIMARY KEY,
	count      BIGINT NOT NULL,
	reset_time TIMESTAMPTZ NOT NULL
)`

// postgresIncrement opens a new window when the stored one has ended and
// advances it otherwise. The upsert executes atomically per key, so
// concurrent increments are totally ordered by the database.
const postgresIncrement = `
INSERT INTO rate_limit_counters AS c (key, count, reset_time)
VALUES ($1, 1, now() + $2)
ON CONFLICT (key) DO UPDATE SET
	count      = CASE WHEN c.reset_time <= now() THEN 1 ELSE c.count + 1 END,
	reset_time = CASE WHEN c.reset_time <= now() THEN now() + $2 ELSE c.reset_time END
RETURNING count, reset_time`

// PostgresStore is a counter store shared across hosts, backed by
// PostgreSQL. An alternative to RedisStore for deployments that already
// run a database but no cache tier. Expired rows are removed by a
// periodic sweep since PostgreSQL has no per-row TTL.
type PostgresStore struct {
	pool *pgxpool.Pool

	sweepInterval time.Duration
	done          chan struct{}
	closeOnce     sync.Once
}

// NewPostgresStore connects to PostgreSQL, creates the counter table if
// needed and starts the sweep goroutine.
func NewPostgresStore(config Config) (*PostgresStore, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for postgres counter store")
	}

	pool, err := pgxpool.New(context.Background(), config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(context.Background(), postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create counter table: %w", err)
	}

	sweepInterval := config.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	s := &PostgresStore{
		pool:          pool,
		sweepInterval: sweepInterval,
		done:          make(chan struct{}),
	}
	go s.sweep()
	return s, nil
}

// Increment advances the counter for key via the upsert statement.
func (s *PostgresStore) Increment(ctx context.Context, key string, window time.Duration) (Counter, error) {
	var count int64
	var resetTime time.Time
	err := s.pool.QueryRow(ctx, postgresIncrement, key, window).Scan(&count, &resetTime)
	if err != nil {
		return Counter{}, fmt.Errorf("postgres increment failed: %w", err)
	}

	return Counter{Count: count, ResetTime: resetTime}, nil
}

// Get returns the live counter for key.
func (s *PostgresStore) Get(ctx context.Context, key string) (Counter, bool, error) {
	var count int64
	var resetTime time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT count, reset_time FROM rate_limit_counters WHERE key = $1 AND reset_time > now()`,
		key).Scan(&count, &resetTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return Counter{}, false, nil
	}
	if err != nil {
		return Counter{}, false, fmt.Errorf("postgres get failed: %w", err)
	}

	return Counter{Count: count, ResetTime: resetTime}, true, nil
}

// Decrement reduces the live counter for key by one, flooring at zero.
func (s *PostgresStore) Decrement(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE rate_limit_counters SET count = count - 1 WHERE key = $1 AND reset_time > now() AND count > 0`,
		key)
	if err != nil {
		return fmt.Errorf("postgres decrement failed: %w", err)
	}
	return nil
}

// Close stops the sweep goroutine and releases the connection pool.
func (s *PostgresStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.pool.Close()
	return nil
}

// sweep periodically deletes rows whose window has ended.
func (s *PostgresStore) sweep() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			// Failed sweeps are retried on the next tick.
			_, _ = s.pool.Exec(context.Background(),
				`DELETE FROM rate_limit_counters WHERE reset_time <= now()`)
		}
	}
}
