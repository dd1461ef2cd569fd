package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteSchema stores reset times as Unix milliseconds for cheap
// comparisons inside the upsert.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rate_limit_counters (
	key        TEXT PRIMARY KEY,
	count      INTEGER NOT NULL,
	reset_time INTEGER NOT NULL
)`

// sqliteIncrement opens a new window when the stored one has ended and
// advances it otherwise, in one statement. SQLite serializes writers, so
// the whole read-modify-write is atomic. Parameters: key, now (ms),
// window (ms).
const sqliteIncrement = `
INSERT INTO rate_limit_counters (key, count, reset_time)
VALUES (?1, 1, ?2 + ?3)
ON CONFLICT(key) DO UPDATE SET
	count      = CASE WHEN reset_time <= ?2 THEN 1 ELSE count + 1 END,
	reset_time = CASE WHEN reset_time <= ?2 THEN ?2 + ?3 ELSE reset_time END
RETURNING count, reset_time`

// SQLiteStore is a single-host counter store backed by SQLite. Unlike
// MemoryStore its counters survive a process restart, which keeps long
// windows (for example brute-force lockouts) intact across deploys.
type SQLiteStore struct {
	db *sql.DB

	sweepInterval time.Duration
	done          chan struct{}
	closeOnce     sync.Once
}

// NewSQLiteStore opens the database, creates the counter table if needed
// and starts the sweep goroutine.
func NewSQLiteStore(config Config) (*SQLiteStore, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for sqlite counter store")
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection sidesteps SQLITE_BUSY between the request path
	// and the sweep.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create counter table: %w", err)
	}

	sweepInterval := config.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	s := &SQLiteStore{
		db:            db,
		sweepInterval: sweepInterval,
		done:          make(chan struct{}),
	}
	go s.sweep()
	return s, nil
}

// Increment advances the counter for key via the upsert statement.
func (s *SQLiteStore) Increment(ctx context.Context, key string, window time.Duration) (Counter, error) {
	now := time.Now()

	var count, resetMs int64
	err := s.db.QueryRowContext(ctx, sqliteIncrement,
		key, now.UnixMilli(), window.Milliseconds()).Scan(&count, &resetMs)
	if err != nil {
		return Counter{}, fmt.Errorf("sqlite increment failed: %w", err)
	}

	return Counter{Count: count, ResetTime: time.UnixMilli(resetMs)}, nil
}

// Get returns the live counter for key; rows past their reset time are
// treated as absent even before the sweep deletes them.
func (s *SQLiteStore) Get(ctx context.Context, key string) (Counter, bool, error) {
	var count, resetMs int64
	err := s.db.QueryRowContext(ctx,
		`SELECT count, reset_time FROM rate_limit_counters WHERE key = ?1 AND reset_time > ?2`,
		key, time.Now().UnixMilli()).Scan(&count, &resetMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Counter{}, false, nil
	}
	if err != nil {
		return Counter{}, false, fmt.Errorf("sqlite get failed: %w", err)
	}

	return Counter{Count: count, ResetTime: time.UnixMilli(resetMs)}, true, nil
}

// Decrement reduces the live counter for key by one, flooring at zero.
func (s *SQLiteStore) Decrement(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rate_limit_counters SET count = count - 1 WHERE key = ?1 AND reset_time > ?2 AND count > 0`,
		key, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite decrement failed: %w", err)
	}
	return nil
}

// Close stops the sweep goroutine and closes the database.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return s.db.Close()
}

// sweep periodically deletes rows whose window has ended.
func (s *SQLiteStore) sweep() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			// Failed sweeps are retried on the next tick.
			_, _ = s.db.Exec(`DELETE FROM rate_limit_counters WHERE reset_time <= ?1`,
				time.Now().UnixMilli())
		}
	}
}
