package store

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"biogas-server/internal/query"
)

//go:embed sql/timescale-latest.sql
var timescaleLatestSQL string

//go:embed sql/timescale-history.sql
var timescaleHistorySQL string

//go:embed sql/timescale-schema.sql
var timescaleSchemaSQL string

// TimescaleStore reads the sensor_readings hypertable described by
// sql/timescale-schema.sql. Writers upsert on (bucket, measurement, field, time).
type TimescaleStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	now    func() time.Time
}

func NewTimescaleStore(ctx context.Context, url string, logger *slog.Logger) (*TimescaleStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("timescale pool: %w", err)
	}
	return &TimescaleStore{pool: pool, logger: logger, now: time.Now}, nil
}

// ApplySchema creates the extension, table and hypertable when missing.
// The statements are idempotent.
func (s *TimescaleStore) ApplySchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, timescaleSchemaSQL); err != nil {
		return fmt.Errorf("timescale schema: %w", err)
	}
	s.logger.Info("timescale schema applied")
	return nil
}

func (s *TimescaleStore) Kind() string { return "TimescaleDB" }

func (s *TimescaleStore) Query(ctx context.Context, q query.Query, fn RowFunc) error {
	stmt, args := timescaleStatement(q, s.now().UTC())
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return classify(ctx, err)
	}
	defer rows.Close()

	tables := newTableIndex()
	for rows.Next() {
		var (
			field string
			value float64
			ts    time.Time
		)
		if err := rows.Scan(&field, &value, &ts); err != nil {
			return classify(ctx, err)
		}
		if err := fn(Row{Field: field, Value: value, Time: ts.UTC(), Table: tables.of(field)}); err != nil {
			return classify(ctx, err)
		}
	}
	return classify(ctx, rows.Err())
}

// timescaleStatement picks the SQL for q and binds its arguments.
func timescaleStatement(q query.Query, now time.Time) (string, []any) {
	start := q.Start(now)
	if q.Aggregated() {
		return timescaleHistorySQL, []any{q.Bucket, q.Measurement, interval(q.Every), start, now}
	}
	return timescaleLatestSQL, []any{q.Bucket, q.Measurement, start, now}
}

func interval(d time.Duration) pgtype.Interval {
	return pgtype.Interval{Microseconds: d.Microseconds(), Valid: true}
}

func (s *TimescaleStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *TimescaleStore) Close() error {
	s.pool.Close()
	return nil
}
