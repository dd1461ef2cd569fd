package ratelimit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"gatekeeper/internal/models"
)

// MetricsRecorder receives one observation per admission decision.
// Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	RecordDecision(r *http.Request, policy string, outcome string)
}

// Decision outcomes reported to the MetricsRecorder.
const (
	OutcomeAllowed  = "allowed"
	OutcomeDenied   = "denied"
	OutcomeFailOpen = "failopen"
)

// Option configures optional middleware behavior.
type Option func(*middlewareOptions)

type middlewareOptions struct {
	metrics MetricsRecorder
}

// WithMetrics records admission decisions to the given recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(o *middlewareOptions) {
		o.metrics = m
	}
}

// Middleware returns HTTP middleware enforcing the given policy. Every
// response carries X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset headers; denied requests receive a 429 with a JSON
// body and Retry-After. A store fault fails open: the error is logged
// and the request proceeds as if allowed, trading strictness for
// availability.
//
// A malformed policy panics here, at setup time, rather than failing on
// every request.
func Middleware(limiter *Limiter, policy Policy, opts ...Option) func(http.Handler) http.Handler {
	if err := policy.Validate(); err != nil {
		panic(fmt.Sprintf("ratelimit: %v", err))
	}

	var options middlewareOptions
	for _, opt := range opts {
		opt(&options)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := policy.KeyFunc(r)

			result, err := limiter.Check(r.Context(), key, policy)
			if err != nil {
				// Fail open: an unreachable or slow store must not block
				// legitimate traffic.
				slog.Error("Rate limit check failed, allowing request",
					"policy", policy.Name,
					"key", key,
					"error", err,
				)
				recordDecision(options.metrics, r, policy.Name, OutcomeFailOpen)
				next.ServeHTTP(w, r)
				return
			}

			// Always set rate limit headers
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(policy.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))

			if !result.Allowed {
				recordDecision(options.metrics, r, policy.Name, OutcomeDenied)
				invokeLimitHook(policy, r, key)
				writeThrottled(w, policy, result)

				slog.Warn("Rate limit exceeded",
					"policy", policy.Name,
					"key", key,
					"count", result.Count,
					"limit", policy.MaxRequests,
				)
				return
			}

			recordDecision(options.metrics, r, policy.Name, OutcomeAllowed)

			if policy.SkipSuccessfulRequests || policy.SkipFailedRequests {
				rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
				next.ServeHTTP(rec, r)

				succeeded := rec.status < http.StatusBadRequest
				if (succeeded && policy.SkipSuccessfulRequests) || (!succeeded && policy.SkipFailedRequests) {
					if err := limiter.Uncount(r.Context(), key); err != nil {
						slog.Error("Failed to un-count skipped request",
							"policy", policy.Name,
							"key", key,
							"error", err,
						)
					}
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeThrottled synthesizes the 429 response.
func writeThrottled(w http.ResponseWriter, policy Policy, result Result) {
	retryAfter := time.Until(result.ResetTime)
	if retryAfter < 0 {
		retryAfter = 0
	}

	body := models.NewTooManyRequestsResponse(
		fmt.Sprintf("Rate limit exceeded: %d requests per %s", policy.MaxRequests, policy.Window),
		retryAfter,
	)

	w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(body)
}

// invokeLimitHook runs the policy's OnLimitReached hook fault-isolated:
// a panicking hook is logged and the 429 still goes out.
func invokeLimitHook(policy Policy, r *http.Request, key string) {
	if policy.OnLimitReached == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			slog.Error("Limit hook panicked",
				"policy", policy.Name,
				"key", key,
				"panic", v,
			)
		}
	}()
	policy.OnLimitReached(r, key)
}

// recordDecision tolerates a nil recorder so metrics stay optional.
func recordDecision(m MetricsRecorder, r *http.Request, policy string, outcome string) {
	if m != nil {
		m.RecordDecision(r, policy, outcome)
	}
}

// statusRecorder captures the status code written by the wrapped handler
// so skip flags can decide whether the request should count.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}
