package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"biogas-server/internal/config"
	httpapi "biogas-server/internal/httpapi"
	"biogas-server/internal/metrics"
	telemetry "biogas-server/internal/modules/telemetry"
	"biogas-server/internal/modules/telemetry/alerting"
	"biogas-server/internal/query"
	"biogas-server/internal/store"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"storeKind", cfg.StoreKind,
		"storeBucket", cfg.StoreBucket,
		"storeMeasurement", cfg.StoreMeasurement,
		"queryTimeout", cfg.QueryTimeout,
		"influxURL", cfg.InfluxURL,
		"influxOrg", cfg.InfluxOrg,
		"influxTokenSet", cfg.InfluxToken != "",
		"sqlitePath", cfg.SQLitePath,
		"breakerMaxFailures", cfg.BreakerMaxFailures,
		"breakerOpenTimeout", cfg.BreakerOpenTimeout,
		"thresholdsFile", cfg.ThresholdsFile,
	)

	queries, err := query.NewBuilder(cfg.StoreBucket, cfg.StoreMeasurement)
	if err != nil {
		return err
	}

	rules := alerting.DefaultRules()
	if cfg.ThresholdsFile != "" {
		rules, err = alerting.LoadRules(cfg.ThresholdsFile)
		if err != nil {
			return err
		}
	}
	slog.Info("alert rules loaded", "count", len(rules), "custom", cfg.ThresholdsFile != "")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st, err := store.Open(ctx, cfg, m, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("store close", "error", closeErr)
		}
	}()

	// Startup continues when the store is down; /healthz reports it.
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := st.Ping(pingCtx); err != nil {
		slog.Warn("store not reachable at startup (continuing)", "store", st.Kind(), "error", err)
	} else {
		slog.Info("store connection successful", "store", st.Kind())
	}
	pingCancel()

	mux := httpapi.NewMux(st, m)
	telemetry.RegisterFeature(mux, telemetry.Deps{
		Store:        st,
		Queries:      queries,
		Rules:        rules,
		QueryTimeout: cfg.QueryTimeout,
		Metrics:      m,
		Logger:       slog.Default(),
	})

	srv := httpapi.NewServer(cfg, mux, m)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
