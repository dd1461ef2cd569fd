package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// anonymousUser is the sentinel identity for unauthenticated callers.
const anonymousUser = "anonymous"

// KeyByIP buckets requests by caller network address.
func KeyByIP(r *http.Request) string {
	return "ip:" + clientIP(r)
}

// KeyByUser buckets requests by authenticated caller identity, falling
// back to a shared anonymous bucket for unauthenticated callers.
func KeyByUser(r *http.Request) string {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		userID = anonymousUser
	}
	return "user:" + userID
}

// KeyByIPAndUser buckets requests by the combination of address and
// identity, so a credential shared across addresses still gets per-host
// quotas.
func KeyByIPAndUser(r *http.Request) string {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		userID = anonymousUser
	}
	return "ipuser:" + clientIP(r) + ":" + userID
}

// KeyByEndpoint buckets requests by target path plus caller address, for
// quotas scoped to a single expensive endpoint.
func KeyByEndpoint(r *http.Request) string {
	return "endpoint:" + r.URL.Path + ":" + clientIP(r)
}

// clientIP extracts the client IP from the request, checking proxy
// headers before falling back to the connection address. The port is
// stripped so one caller's requests share a bucket across connections.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
