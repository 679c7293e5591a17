package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"biogas-server/internal/query"
)

type InfluxStore struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	logger   *slog.Logger
}

func NewInfluxStore(url, token, org string, logger *slog.Logger) *InfluxStore {
	if logger == nil {
		logger = slog.Default()
	}
	client := influxdb2.NewClient(url, token)
	return &InfluxStore{
		client:   client,
		queryAPI: client.QueryAPI(org),
		logger:   logger,
	}
}

func (s *InfluxStore) Kind() string { return "InfluxDB" }

func (s *InfluxStore) Query(ctx context.Context, q query.Query, fn RowFunc) error {
	result, err := s.queryAPI.Query(ctx, q.Flux())
	if err != nil {
		return classify(ctx, err)
	}
	defer func() {
		if err := result.Close(); err != nil {
			s.logger.Debug("close flux result", "error", err)
		}
	}()

	for result.Next() {
		rec := result.Record()
		v, ok := toFloat(rec.Value())
		if !ok {
			s.logger.Warn("skipping non-numeric flux value",
				"intent", q.Intent,
				"field", rec.Field(),
				"type", fmt.Sprintf("%T", rec.Value()),
			)
			continue
		}
		row := Row{Field: rec.Field(), Value: v, Time: rec.Time().UTC(), Table: rec.Table()}
		if err := fn(row); err != nil {
			return classify(ctx, err)
		}
	}
	return classify(ctx, result.Err())
}

func (s *InfluxStore) Ping(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influxdb ping: %w", err)
	}
	if !ok {
		return errors.New("influxdb ping: server not ready")
	}
	return nil
}

func (s *InfluxStore) Close() error {
	s.client.Close()
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
