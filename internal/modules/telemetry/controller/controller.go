package controller

import (
	"log/slog"
	"net/http"

	"biogas-server/internal/metrics"
	"biogas-server/internal/modules/telemetry/alerting"
	"biogas-server/internal/modules/telemetry/repository"
)

type TelemetryController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type telemetryControllerImpl struct {
	repository repository.TelemetryRepository
	rules      alerting.Rules
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewTelemetryController(repository repository.TelemetryRepository, rules alerting.Rules, m *metrics.Metrics, logger *slog.Logger) TelemetryController {
	if logger == nil {
		logger = slog.Default()
	}
	return &telemetryControllerImpl{repository: repository, rules: rules, metrics: m, logger: logger}
}

func (c *telemetryControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sensors/latest", c.handleLatest)
	mux.HandleFunc("GET /api/sensors/history", c.handleHistory)
	mux.HandleFunc("GET /api/alerts", c.handleAlerts)
}
