package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"gatekeeper/internal/ratelimit"
)

// RouteOption configures optional route behavior.
type RouteOption func(*routeConfig)

type routeConfig struct {
	otelService string
	burst       int
	limitOpts   []ratelimit.Option
	alertLogger *slog.Logger
}

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(c *routeConfig) {
		c.otelService = serviceName
	}
}

// WithDecisionMetrics records every admission decision to the recorder.
func WithDecisionMetrics(m ratelimit.MetricsRecorder) RouteOption {
	return func(c *routeConfig) {
		c.limitOpts = append(c.limitOpts, ratelimit.WithMetrics(m))
	}
}

// WithBurstControl applies router-wide per-second burst control ahead of
// the per-route policies.
func WithBurstControl(maxPerSecond int) RouteOption {
	return func(c *routeConfig) {
		c.burst = maxPerSecond
	}
}

// WithAlertLogger routes brute-force security events to the given logger
// instead of the default one.
func WithAlertLogger(logger *slog.Logger) RouteOption {
	return func(c *routeConfig) {
		c.alertLogger = logger
	}
}

// SetupRoutes configures the HTTP routes, wrapping each endpoint class
// with its policy preset.
func SetupRoutes(handlers *Handlers, limiter *ratelimit.Limiter, opts ...RouteOption) *mux.Router {
	var cfg routeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	router := mux.NewRouter()

	if cfg.otelService != "" {
		router.Use(otelmux.Middleware(cfg.otelService,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health"
			}),
		))
	}

	// Health stays outside every limiter so probes always get through.
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")

	wrap := func(policy ratelimit.Policy) func(http.Handler) http.Handler {
		return ratelimit.Middleware(limiter, policy, cfg.limitOpts...)
	}

	if cfg.burst > 0 {
		burst := wrap(ratelimit.BurstPolicy(cfg.burst))
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/health" {
					next.ServeHTTP(w, r)
					return
				}
				burst(next).ServeHTTP(w, r)
			})
		})
	}

	router.Use(identityMiddleware)

	public := router.PathPrefix("/").Subrouter()
	public.Use(wrap(ratelimit.PublicPolicy()))
	public.HandleFunc("/", handlers.Index).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	status := api.PathPrefix("/status").Subrouter()
	status.Use(wrap(ratelimit.APIPolicy()))
	status.HandleFunc("", handlers.Status).Methods("GET")

	auth := api.PathPrefix("/auth").Subrouter()
	auth.Use(wrap(ratelimit.BruteForcePolicy(cfg.alertLogger)))
	auth.HandleFunc("/login", handlers.Login).Methods("POST")

	chat := api.PathPrefix("/chat").Subrouter()
	chat.Use(wrap(ratelimit.ChatPolicy()))
	chat.HandleFunc("/messages", handlers.PostMessage).Methods("POST")

	search := api.PathPrefix("/search").Subrouter()
	search.Use(wrap(ratelimit.SearchPolicy()))
	search.HandleFunc("", handlers.Search).Methods("GET")

	uploads := api.PathPrefix("/uploads").Subrouter()
	uploads.Use(wrap(ratelimit.UploadPolicy()))
	uploads.HandleFunc("", handlers.Upload).Methods("POST")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(wrap(ratelimit.AdminPolicy()))
	admin.HandleFunc("/stats", handlers.AdminStats).Methods("GET")

	return router
}
