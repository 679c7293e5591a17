package store

import (
	"context"
	"fmt"
	"log/slog"

	"biogas-server/internal/config"
	"biogas-server/internal/db"
	"biogas-server/internal/metrics"
)

// Open builds the configured backend wrapped in the circuit breaker and
// the tracing/metrics layer. The returned store owns the backend connection.
func Open(ctx context.Context, cfg config.Config, m *metrics.Metrics, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var backend Store
	switch cfg.StoreKind {
	case config.StoreInfluxDB:
		backend = NewInfluxStore(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, logger)
	case config.StoreSQLite:
		conn, err := db.Open(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		backend = NewSQLiteStore(conn, logger)
	case config.StoreTimescale:
		ts, err := NewTimescaleStore(ctx, cfg.TimescaleURL, logger)
		if err != nil {
			return nil, fmt.Errorf("open timescale store: %w", err)
		}
		if cfg.TimescaleApplySchema {
			if err := ts.ApplySchema(ctx); err != nil {
				_ = ts.Close()
				return nil, fmt.Errorf("open timescale store: %w", err)
			}
		}
		backend = ts
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.StoreKind)
	}

	breaker := NewBreakerStore(backend, BreakerSettings{
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, m, logger)
	return NewInstrumentedStore(breaker, m, logger), nil
}
