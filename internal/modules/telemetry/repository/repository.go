package repository

import (
	"context"
	"time"

	"biogas-server/internal/modules/telemetry/reshape"
	"biogas-server/internal/modules/telemetry/types"
	"biogas-server/internal/query"
	"biogas-server/internal/store"
)

// TelemetryRepository issues exactly one store query per call. Results are
// only returned once the row stream has completed; partial results are
// discarded on error.
type TelemetryRepository interface {
	GetLatest(ctx context.Context) (types.Snapshot, error)
	GetHistory(ctx context.Context) ([]types.HistoryPoint, error)
	GetAlertSnapshot(ctx context.Context) (types.Snapshot, error)
}

type repositoryImpl struct {
	store   store.Store
	queries *query.Builder
	timeout time.Duration
}

// NewRepository bounds every store call by timeout; zero disables the bound.
func NewRepository(s store.Store, queries *query.Builder, timeout time.Duration) TelemetryRepository {
	return &repositoryImpl{store: s, queries: queries, timeout: timeout}
}

func (r *repositoryImpl) GetLatest(ctx context.Context) (types.Snapshot, error) {
	return r.snapshot(ctx, r.queries.Latest())
}

func (r *repositoryImpl) GetAlertSnapshot(ctx context.Context) (types.Snapshot, error) {
	return r.snapshot(ctx, r.queries.Alerts())
}

func (r *repositoryImpl) GetHistory(ctx context.Context) ([]types.HistoryPoint, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	h := reshape.NewHistory()
	if err := r.store.Query(ctx, r.queries.History(), h.Add); err != nil {
		return nil, err
	}
	return h.Points(), nil
}

func (r *repositoryImpl) snapshot(ctx context.Context, q query.Query) (types.Snapshot, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	l := reshape.NewLatest()
	if err := r.store.Query(ctx, q, l.Add); err != nil {
		return types.Snapshot{}, err
	}
	return l.Snapshot(), nil
}

func (r *repositoryImpl) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
