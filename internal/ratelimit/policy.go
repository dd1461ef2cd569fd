// Package ratelimit provides counter-based admission control for HTTP
// requests using fixed windows. A Policy pairs a window and quota with a
// key derivation strategy; the Limiter turns store counters into
// allow/deny decisions; Middleware wraps handlers with the header and
// 429 contract. Counter persistence is pluggable via the storage package.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// KeyFunc derives the throttling key for a request. Keys from different
// strategies are namespaced so they can never collide.
type KeyFunc func(r *http.Request) string

// LimitHandler is a side-effect hook invoked when a request is denied,
// for example security alerting. It runs fault-isolated: a panic inside
// the hook is logged and never affects the 429 response.
type LimitHandler func(r *http.Request, key string)

// Policy describes one admission-control rule. Policies are immutable
// value types; presets return fresh copies that callers may adjust
// before wiring into Middleware.
type Policy struct {
	// Name identifies the policy in logs and metrics.
	Name string

	// Window is the fixed counting window. The window boundary is set by
	// the first request and does not slide with later activity.
	Window time.Duration

	// MaxRequests is the quota permitted within one window.
	MaxRequests int

	// SkipSuccessfulRequests un-counts requests whose response status was
	// below 400, so only failures consume quota.
	SkipSuccessfulRequests bool

	// SkipFailedRequests un-counts requests whose response status was 400
	// or above.
	SkipFailedRequests bool

	// KeyFunc derives the throttling key. Required.
	KeyFunc KeyFunc

	// OnLimitReached is invoked (if set) each time a request is denied.
	OnLimitReached LimitHandler
}

// Validate reports whether the policy is usable. A malformed policy is a
// programmer error and is rejected at setup time, not per request.
func (p Policy) Validate() error {
	if p.Window <= 0 {
		return fmt.Errorf("policy %q: window must be positive, got %v", p.Name, p.Window)
	}
	if p.MaxRequests <= 0 {
		return fmt.Errorf("policy %q: max requests must be positive, got %d", p.Name, p.MaxRequests)
	}
	if p.KeyFunc == nil {
		return fmt.Errorf("policy %q: key function is required", p.Name)
	}
	return nil
}

// contextKey is unexported to keep context values collision-free.
type contextKey string

const userIDContextKey contextKey = "user_id"

// WithUserID returns a context carrying the authenticated caller's
// identity, as set by an upstream auth middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext extracts the authenticated caller's identity.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok && userID != ""
}
