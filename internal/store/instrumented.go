package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"biogas-server/internal/metrics"
	"biogas-server/internal/query"
)

const tracerName = "biogas-server/internal/store"

// InstrumentedStore records a span, a duration sample and an outcome counter
// for every query. Spans go to the global tracer provider, which is a no-op
// unless one is installed.
type InstrumentedStore struct {
	next    Store
	tracer  trace.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewInstrumentedStore(next Store, m *metrics.Metrics, logger *slog.Logger) *InstrumentedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentedStore{
		next:    next,
		tracer:  otel.Tracer(tracerName),
		metrics: m,
		logger:  logger,
	}
}

func (s *InstrumentedStore) Kind() string { return s.next.Kind() }

func (s *InstrumentedStore) Query(ctx context.Context, q query.Query, fn RowFunc) error {
	ctx, span := s.tracer.Start(ctx, "store.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", s.next.Kind()),
			attribute.String("biogas.query.intent", string(q.Intent)),
			attribute.String("biogas.query.bucket", q.Bucket),
		),
	)
	defer span.End()

	start := time.Now()
	rows := 0
	series := map[int]struct{}{}
	err := s.next.Query(ctx, q, func(r Row) error {
		rows++
		series[r.Table] = struct{}{}
		return fn(r)
	})
	elapsed := time.Since(start)

	outcome := Outcome(err)
	s.metrics.ObserveQuery(string(q.Intent), outcome, elapsed)
	span.SetAttributes(
		attribute.Int("biogas.query.rows", rows),
		attribute.Int("biogas.query.series", len(series)),
		attribute.String("biogas.query.outcome", outcome),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.WarnContext(ctx, "store query failed",
			"intent", q.Intent,
			"outcome", outcome,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return err
	}
	s.logger.DebugContext(ctx, "store query",
		"intent", q.Intent,
		"rows", rows,
		"series", len(series),
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "store.ping", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	err := s.next.Ping(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ping failed")
	}
	return err
}

func (s *InstrumentedStore) Close() error { return s.next.Close() }

// Outcome labels err for metrics: ok, timeout, unavailable, canceled or error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrStoreTimeout):
		return "timeout"
	case errors.Is(err, ErrStoreUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
