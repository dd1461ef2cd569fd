// Package api wires the admission-control middleware around the
// service's HTTP surface. The handlers here are deliberately small: the
// endpoint classes exist to give each policy preset a route to protect.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"gatekeeper/internal/models"
	"gatekeeper/internal/ratelimit"
)

// Handlers holds the HTTP handlers and their shared state.
type Handlers struct {
	backend   string
	startTime time.Time
}

// NewHandlers creates the handler set. backend names the active counter
// store for the health endpoint.
func NewHandlers(backend string) *Handlers {
	return &Handlers{
		backend:   backend,
		startTime: time.Now(),
	}
}

// HealthCheck reports service liveness. It is not rate limited so
// orchestrator probes can never be throttled out.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthCheckResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Backend:   h.backend,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Status is the general API demo endpoint.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "gatekeeper",
		"status":  "ok",
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login simulates an authentication endpoint. Anything with both fields
// present is accepted; the point is the brute-force policy in front of
// it, which only charges quota for failed attempts.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("invalid request body", models.ErrorCodeBadRequest))
		return
	}

	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("invalid credentials", "UNAUTHORIZED"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": uuid.NewString(),
		"user":       req.Username,
	})
}

// PostMessage is the chat demo endpoint.
func (h *Handlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{
		"message_id": uuid.NewString(),
	})
}

// Search is the search demo endpoint.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": []string{},
	})
}

// Upload is the upload demo endpoint.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{
		"upload_id": uuid.NewString(),
	})
}

// AdminStats is the admin demo endpoint.
func (h *Handlers) AdminStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"backend": h.backend,
		"uptime":  time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Index is the public demo endpoint.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "gatekeeper",
	})
}

// identityMiddleware derives the caller identity from a bearer token and
// stores it on the request context for user-keyed policies. The demo
// trusts the token verbatim; a real deployment would verify it upstream.
func identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
			r = r.WithContext(ratelimit.WithUserID(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
