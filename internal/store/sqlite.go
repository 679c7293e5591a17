package store

import (
	"context"
	"database/sql"
	_ "embed"
	"log/slog"
	"time"

	"biogas-server/internal/db"
	"biogas-server/internal/query"
)

//go:embed sql/sqlite-latest.sql
var sqliteLatestSQL string

//go:embed sql/sqlite-history.sql
var sqliteHistorySQL string

// SQLiteStore reads the sensor_readings table maintained by internal/db.
// Timestamps are stored as Unix nanoseconds. Rows sharing a field and
// timestamp are one point: the last inserted row wins.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewSQLiteStore(conn *sql.DB, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{db: conn, logger: logger, now: time.Now}
}

func (s *SQLiteStore) Kind() string { return "SQLite" }

func (s *SQLiteStore) Query(ctx context.Context, q query.Query, fn RowFunc) error {
	now := s.now().UTC()
	start := q.Start(now).UnixNano()

	var (
		rows *sql.Rows
		err  error
	)
	if q.Aggregated() {
		rows, err = s.db.QueryContext(ctx, sqliteHistorySQL,
			q.Bucket, q.Measurement, q.Every.Nanoseconds(), start, now.UnixNano())
	} else {
		rows, err = s.db.QueryContext(ctx, sqliteLatestSQL,
			q.Bucket, q.Measurement, start, now.UnixNano())
	}
	if err != nil {
		return classify(ctx, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("close sensor rows", "error", err)
		}
	}()

	tables := newTableIndex()
	for rows.Next() {
		var (
			field string
			value float64
			ts    int64
		)
		if err := rows.Scan(&field, &value, &ts); err != nil {
			return classify(ctx, err)
		}
		row := Row{Field: field, Value: value, Time: time.Unix(0, ts).UTC(), Table: tables.of(field)}
		if err := fn(row); err != nil {
			return classify(ctx, err)
		}
	}
	return classify(ctx, rows.Err())
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return db.Close(s.db)
}

// tableIndex numbers fields in order of first appearance, mirroring the
// one-table-per-series layout of Flux results.
type tableIndex map[string]int

func newTableIndex() tableIndex { return tableIndex{} }

func (t tableIndex) of(field string) int {
	if n, ok := t[field]; ok {
		return n
	}
	n := len(t)
	t[field] = n
	return n
}
