package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatekeeper/internal/api"
	"gatekeeper/internal/config"
	"gatekeeper/internal/logger"
	"gatekeeper/internal/models"
	"gatekeeper/internal/observability"
	"gatekeeper/internal/ratelimit"
	"gatekeeper/internal/storage"
)

var configFile = flag.String("config", "", "Path to configuration file")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging
	log, closer, err := logger.Setup(cfg.Logging, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability)
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	// Initialize the counter store
	storeInstance, err := initializeStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize counter store", "error", err)
		os.Exit(1)
	}
	defer storeInstance.Close()
	slog.Info("Counter store initialized", "backend", cfg.Limiter.Backend)

	// Wrap the store with instrumentation if metrics are enabled
	var activeStore storage.Store = storeInstance
	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedStore(storeInstance)
		if err != nil {
			slog.Error("Failed to create instrumented store", "error", err)
			os.Exit(1)
		}
		activeStore = instrumented
	}

	// One limiter instance is shared by every wrapped route; correctness
	// under concurrency comes from the store, not from the limiter.
	limiter := ratelimit.NewLimiter(activeStore, cfg.Limiter.StoreTimeout)

	// Setup routes with middleware
	handlers := api.NewHandlers(cfg.Limiter.Backend)
	routeOpts := []api.RouteOption{
		api.WithBurstControl(25),
		api.WithAlertLogger(log),
	}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}
	if cfg.Metrics.Enabled {
		decisionMetrics, err := observability.NewDecisionMetrics()
		if err != nil {
			slog.Error("Failed to create decision metrics", "error", err)
			os.Exit(1)
		}
		routeOpts = append(routeOpts, api.WithDecisionMetrics(decisionMetrics))
	}

	router := api.SetupRoutes(handlers, limiter, routeOpts...)

	// Start metrics server if enabled
	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Starting server", "addr", server.Addr)

		var err error
		if cfg.Server.TLSEnabled {
			if cfg.Server.TLSCertFile == "" || cfg.Server.TLSKeyFile == "" {
				slog.Error("TLS is enabled but cert file or key file is not specified")
				os.Exit(1)
			}
			slog.Info("Starting HTTPS server with TLS")
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			slog.Info("Starting HTTP server")
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	// Create a deadline to wait for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown metrics server
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
}

// initializeStore creates a counter store instance based on configuration
func initializeStore(cfg *models.Config) (storage.Store, error) {
	storeConfig := storage.Config{
		Type:             cfg.Limiter.Backend,
		ConnectionString: cfg.Limiter.Database.DSN,
		RedisAddr:        cfg.Limiter.Redis.Addr,
		RedisPassword:    cfg.Limiter.Redis.Password,
		RedisDB:          cfg.Limiter.Redis.DB,
		RedisPoolSize:    cfg.Limiter.Redis.PoolSize,
		SweepInterval:    cfg.Limiter.SweepInterval,
	}

	factory := storage.NewFactory()
	if err := factory.ValidateConfig(storeConfig); err != nil {
		return nil, err
	}
	return factory.Create(storeConfig)
}
