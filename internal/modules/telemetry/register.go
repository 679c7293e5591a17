package telemetry

import (
	"log/slog"
	"net/http"
	"time"

	"biogas-server/internal/metrics"
	"biogas-server/internal/modules/telemetry/alerting"
	"biogas-server/internal/modules/telemetry/controller"
	"biogas-server/internal/modules/telemetry/repository"
	"biogas-server/internal/query"
	"biogas-server/internal/store"
)

type Deps struct {
	Store        store.Store
	Queries      *query.Builder
	Rules        alerting.Rules
	QueryTimeout time.Duration
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

func RegisterFeature(mux *http.ServeMux, deps Deps) {
	telemetryRepository := repository.NewRepository(deps.Store, deps.Queries, deps.QueryTimeout)
	telemetryController := controller.NewTelemetryController(telemetryRepository, deps.Rules, deps.Metrics, deps.Logger)
	telemetryController.RegisterRoutes(mux)
}
