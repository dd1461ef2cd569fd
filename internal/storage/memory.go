package storage

import (
	"context"
	"sync"
	"time"
)

// defaultSweepInterval bounds memory growth from abandoned keys.
const defaultSweepInterval = 5 * time.Minute

// MemoryStore is an in-process counter store. It is correct for a single
// host; counters do not survive a process restart. A background goroutine
// periodically removes counters whose window has ended.
type MemoryStore struct {
	sweepInterval time.Duration

	mu       sync.Mutex
	counters map[string]Counter
	done     chan struct{}
	closed   bool
}

// NewMemoryStore creates an in-process counter store and starts its sweep
// goroutine. A non-positive sweep interval selects the default.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	m := &MemoryStore{
		sweepInterval: sweepInterval,
		counters:      make(map[string]Counter),
		done:          make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Increment opens a new window or advances the current one. The mutex
// makes the read-modify-write atomic for concurrent callers.
func (m *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (Counter, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Counter{}, ErrClosed
	}

	c, exists := m.counters[key]
	if !exists || !now.Before(c.ResetTime) {
		c = Counter{Count: 1, ResetTime: now.Add(window)}
	} else {
		c.Count++
	}
	m.counters[key] = c

	return c, nil
}

// Get returns the live counter for key. Expired counters are reported as
// absent even before the sweep removes them.
func (m *MemoryStore) Get(_ context.Context, key string) (Counter, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Counter{}, false, ErrClosed
	}

	c, exists := m.counters[key]
	if !exists || !time.Now().Before(c.ResetTime) {
		return Counter{}, false, nil
	}
	return c, true, nil
}

// Decrement reduces the live counter for key by one, flooring at zero.
func (m *MemoryStore) Decrement(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	c, exists := m.counters[key]
	if !exists || !time.Now().Before(c.ResetTime) || c.Count == 0 {
		return nil
	}
	c.Count--
	m.counters[key] = c
	return nil
}

// Close stops the sweep goroutine. Safe to call more than once.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Len returns the number of physically stored counters, expired included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}

// sweep periodically drops counters whose window has ended. Swept
// counters are by definition not live, so the sweep never contends with
// Increment over a key's current value.
func (m *MemoryStore) sweep() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.dropExpired()
		}
	}
}

// dropExpired removes counters that have passed their reset time.
func (m *MemoryStore) dropExpired() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, c := range m.counters {
		if !now.Before(c.ResetTime) {
			delete(m.counters, key)
		}
	}
}
