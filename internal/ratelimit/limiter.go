package ratelimit

import (
	"context"
	"time"

	"gatekeeper/internal/storage"
)

// Result is the admission decision for one request.
type Result struct {
	Allowed   bool      // Whether the request fits the quota
	Count     int64     // Requests observed in the current window, this one included
	Remaining int       // Quota left in the window, never negative
	ResetTime time.Time // When the current window ends
}

// Limiter is the decision engine. It holds no per-key state of its own;
// correctness under concurrency comes entirely from the store's atomic
// increment, so a single Limiter is safe to share across goroutines and,
// with a shared store, across hosts.
type Limiter struct {
	store        storage.Store
	storeTimeout time.Duration
}

// NewLimiter creates a limiter on top of the given counter store.
// storeTimeout bounds each store round trip; a store call exceeding it is
// treated as a store error by callers (and fails open in Middleware).
// Zero disables the bound.
func NewLimiter(store storage.Store, storeTimeout time.Duration) *Limiter {
	return &Limiter{store: store, storeTimeout: storeTimeout}
}

// Check counts the request against the policy's window and returns the
// decision. The triggering request itself counts: the first call in a
// fresh window returns Count=1.
func (l *Limiter) Check(ctx context.Context, key string, policy Policy) (Result, error) {
	if l.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.storeTimeout)
		defer cancel()
	}

	counter, err := l.store.Increment(ctx, key, policy.Window)
	if err != nil {
		return Result{}, err
	}

	remaining := policy.MaxRequests - int(counter.Count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   counter.Count <= int64(policy.MaxRequests),
		Count:     counter.Count,
		Remaining: remaining,
		ResetTime: counter.ResetTime,
	}, nil
}

// Uncount compensates the counter for a request excluded after the fact
// by the skip-successful/skip-failed policy flags.
func (l *Limiter) Uncount(ctx context.Context, key string) error {
	if l.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.storeTimeout)
		defer cancel()
	}
	return l.store.Decrement(ctx, key)
}
