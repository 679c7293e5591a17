package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"biogas-server/internal/metrics"
	"biogas-server/internal/query"
)

type BreakerSettings struct {
	// MaxFailures is the number of consecutive failed queries that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker rejects queries before letting one trial query through.
	OpenTimeout time.Duration
}

// errRowRejected marks a stream stopped by the caller's RowFunc.
var errRowRejected = errors.New("row rejected by caller")

// BreakerStore short-circuits queries with ErrStoreUnavailable while the
// wrapped store keeps failing. Caller cancellation and rows the callback
// rejects count as neither success nor failure, so a half-open breaker
// stays half-open until the store itself answers.
type BreakerStore struct {
	next    Store
	cb      *gobreaker.CircuitBreaker[struct{}]
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewBreakerStore(next Store, settings BreakerSettings, m *metrics.Metrics, logger *slog.Logger) *BreakerStore {
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = 1
	}
	b := &BreakerStore{next: next, metrics: m, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        next.Kind(),
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.metrics.SetBreakerOpen(to == gobreaker.StateOpen)
			b.logger.Warn("store circuit breaker state changed",
				"store", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled) || errors.Is(err, errRowRejected)
		},
	})
	return b
}

func (b *BreakerStore) Kind() string { return b.next.Kind() }

func (b *BreakerStore) Close() error { return b.next.Close() }

func (b *BreakerStore) State() gobreaker.State { return b.cb.State() }

func (b *BreakerStore) Query(ctx context.Context, q query.Query, fn RowFunc) error {
	var (
		rejected bool
		queryErr error
	)
	_, err := b.cb.Execute(func() (struct{}, error) {
		queryErr = b.next.Query(ctx, q, func(r Row) error {
			if err := fn(r); err != nil {
				rejected = true
				return err
			}
			return nil
		})
		if rejected {
			return struct{}{}, errRowRejected
		}
		return struct{}{}, queryErr
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s circuit breaker %v", ErrStoreUnavailable, b.next.Kind(), err)
	}
	if err != nil && !errors.Is(err, errRowRejected) {
		return err
	}
	return queryErr
}

// Ping bypasses the breaker so health checks observe the store itself.
func (b *BreakerStore) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}
