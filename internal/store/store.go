// Package store executes telemetry queries against a time-series backend and
// streams the resulting rows to a callback.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"biogas-server/internal/query"
)

var (
	// ErrQueryFailed covers network, auth, malformed query and store-side failures.
	ErrQueryFailed = errors.New("query failed")
	// ErrStoreTimeout is returned when the query deadline expires before the stream completes.
	ErrStoreTimeout = errors.New("store query timed out")
	// ErrStoreUnavailable is returned without contacting the store while the circuit breaker is open.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Row is one (field, value, time) record of a query result. Table is the
// backend's result table index, one per series; rows of different tables
// may interleave. InstrumentedStore reports the number of distinct tables.
type Row struct {
	Field string
	Value float64
	Time  time.Time
	Table int
}

// RowFunc receives rows in arrival order. Returning an error stops the
// stream and becomes the error of Query.
type RowFunc func(Row) error

type Store interface {
	// Kind names the backend for health reporting, e.g. "InfluxDB".
	Kind() string
	// Query runs q and calls fn for every row. A nil return means the
	// stream completed; partial results must be discarded on error.
	Query(ctx context.Context, q query.Query, fn RowFunc) error
	Ping(ctx context.Context) error
	Close() error
}

// classify maps a backend failure to one of the package sentinels while
// keeping the underlying message for diagnostics.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQueryFailed) || errors.Is(err, ErrStoreTimeout) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrStoreTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrQueryFailed, err)
}
