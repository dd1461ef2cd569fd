package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsServer serves Prometheus metrics on a separate port.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a metrics HTTP server serving the Prometheus
// handler at the given path on the given port.
func NewMetricsServer(port int, path string, provider *Provider) *MetricsServer {
	mux := http.NewServeMux()

	if provider != nil && provider.promExporter != nil {
		mux.Handle(path, promhttp.Handler())
	}

	return &MetricsServer{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}
}

// Start begins serving metrics in a blocking call.
// Returns http.ErrServerClosed on graceful shutdown.
func (ms *MetricsServer) Start() error {
	slog.Info("Starting metrics server", "addr", ms.server.Addr)
	return ms.server.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

// DecisionMetrics records admission-control outcomes. It satisfies the
// ratelimit.MetricsRecorder interface.
type DecisionMetrics struct {
	decisions metric.Int64Counter
}

// NewDecisionMetrics registers the decision counter on the global meter.
func NewDecisionMetrics() (*DecisionMetrics, error) {
	meter := otel.Meter("gatekeeper/ratelimit")

	decisions, err := meter.Int64Counter(
		"ratelimit.decisions",
		metric.WithDescription("Number of admission decisions by policy and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &DecisionMetrics{decisions: decisions}, nil
}

// RecordDecision counts one admission decision.
func (dm *DecisionMetrics) RecordDecision(r *http.Request, policy string, outcome string) {
	dm.decisions.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("policy", policy),
		attribute.String("outcome", outcome),
	))
}
