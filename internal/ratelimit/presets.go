package ratelimit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Preset policies for common endpoint classes. Each call returns a fresh
// Policy value, so callers may adjust a copy without affecting others.

// APIPolicy covers general API traffic.
func APIPolicy() Policy {
	return Policy{Name: "api", Window: 15 * time.Minute, MaxRequests: 100, KeyFunc: KeyByIP}
}

// AuthPolicy throttles authentication attempts. Quota is deliberately
// small; combined with SkipSuccessfulRequests only failed logins consume
// it, so legitimate users who sign in cleanly are never locked out.
func AuthPolicy() Policy {
	return Policy{
		Name:                   "auth",
		Window:                 15 * time.Minute,
		MaxRequests:            5,
		KeyFunc:                KeyByIP,
		SkipSuccessfulRequests: true,
	}
}

// ChatPolicy throttles chat message sends per authenticated user.
func ChatPolicy() Policy {
	return Policy{Name: "chat", Window: time.Minute, MaxRequests: 10, KeyFunc: KeyByUser}
}

// SearchPolicy throttles search queries per address and user.
func SearchPolicy() Policy {
	return Policy{Name: "search", Window: time.Minute, MaxRequests: 20, KeyFunc: KeyByIPAndUser}
}

// UploadPolicy throttles uploads per authenticated user.
func UploadPolicy() Policy {
	return Policy{Name: "upload", Window: time.Hour, MaxRequests: 10, KeyFunc: KeyByUser}
}

// AdminPolicy throttles admin operations per authenticated user.
func AdminPolicy() Policy {
	return Policy{Name: "admin", Window: time.Minute, MaxRequests: 30, KeyFunc: KeyByUser}
}

// PublicPolicy covers unauthenticated public traffic.
func PublicPolicy() Policy {
	return Policy{Name: "public", Window: time.Minute, MaxRequests: 60, KeyFunc: KeyByIP}
}

// BurstPolicy is per-second burst control keyed by address, used to blunt
// request floods ahead of the coarser per-minute policies.
func BurstPolicy(maxPerSecond int) Policy {
	return Policy{Name: "burst", Window: time.Second, MaxRequests: maxPerSecond, KeyFunc: KeyByIP}
}

// BruteForcePolicy is repeated-failure control for authentication
// endpoints: a long window, a small quota and a security alert on every
// denial.
func BruteForcePolicy(logger *slog.Logger) Policy {
	p := AuthPolicy()
	p.Name = "bruteforce"
	p.OnLimitReached = AuthAlertHook(logger)
	return p
}

// AuthAlertHook returns a LimitHandler that emits a structured security
// event for each denied authentication attempt. The event ID lets an
// alerting pipeline deduplicate and correlate downstream.
func AuthAlertHook(logger *slog.Logger) LimitHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(r *http.Request, key string) {
		logger.Warn("Repeated authentication failures",
			"event_id", uuid.NewString(),
			"alert", "brute_force",
			"key", key,
			"path", r.URL.Path,
			"user_agent", r.UserAgent(),
		)
	}
}
