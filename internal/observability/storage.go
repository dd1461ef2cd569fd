package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"gatekeeper/internal/storage"
)

// InstrumentedStore wraps a storage.Store implementation with
// OpenTelemetry tracing and metrics instrumentation. Store latency is the
// one suspension point on the request path, so it is the number worth
// watching.
type InstrumentedStore struct {
	inner    storage.Store
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedStore creates a store wrapper that records trace spans,
// operation latency histograms, and error counters for every store call.
func NewInstrumentedStore(inner storage.Store) (*InstrumentedStore, error) {
	tracer := otel.Tracer("gatekeeper/storage")
	meter := otel.Meter("gatekeeper/storage")

	duration, err := meter.Float64Histogram(
		"store.operation.duration",
		metric.WithDescription("Duration of counter store operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"store.operation.errors",
		metric.WithDescription("Number of counter store operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStore{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStore) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "store."+operation,
		trace.WithAttributes(
			attribute.String("store.operation", operation),
		),
	)
	return ctx, span
}

func (s *InstrumentedStore) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// Increment instruments the wrapped store's Increment.
func (s *InstrumentedStore) Increment(ctx context.Context, key string, window time.Duration) (storage.Counter, error) {
	ctx, span := s.startSpan(ctx, "increment")
	start := time.Now()
	counter, err := s.inner.Increment(ctx, key, window)
	s.record(ctx, span, "increment", start, err)
	return counter, err
}

// Get instruments the wrapped store's Get.
func (s *InstrumentedStore) Get(ctx context.Context, key string) (storage.Counter, bool, error) {
	ctx, span := s.startSpan(ctx, "get")
	start := time.Now()
	counter, found, err := s.inner.Get(ctx, key)
	s.record(ctx, span, "get", start, err)
	return counter, found, err
}

// Decrement instruments the wrapped store's Decrement.
func (s *InstrumentedStore) Decrement(ctx context.Context, key string) error {
	ctx, span := s.startSpan(ctx, "decrement")
	start := time.Now()
	err := s.inner.Decrement(ctx, key)
	s.record(ctx, span, "decrement", start, err)
	return err
}

// Close closes the wrapped store.
func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}
