package controller

import (
	"context"
	"errors"
	"net/http"

	"biogas-server/internal/modules/telemetry/alerting"
	"biogas-server/internal/modules/telemetry/types"
	"biogas-server/internal/store"
	"biogas-server/internal/utils"
)

const noRecentData = "No recent data found."

type latestResponse struct {
	Success bool                `json:"success"`
	Data    types.LatestReading `json:"data"`
}

type historyResponse struct {
	Success bool                 `json:"success"`
	Count   int                  `json:"count"`
	Data    []types.HistoryPoint `json:"data"`
}

type alertsResponse struct {
	Success    bool          `json:"success"`
	AlertCount int           `json:"alertCount"`
	Alerts     []types.Alert `json:"alerts"`
}

func (c *telemetryControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	snap, err := c.repository.GetLatest(r.Context())
	if err != nil {
		c.writeStoreError(w, r, "latest", err)
		return
	}
	if snap.Empty() {
		utils.WriteNotFound(w, noRecentData)
		return
	}
	utils.WriteJSON(w, http.StatusOK, latestResponse{Success: true, Data: types.NewLatestReading(snap)})
}

func (c *telemetryControllerImpl) handleHistory(w http.ResponseWriter, r *http.Request) {
	points, err := c.repository.GetHistory(r.Context())
	if err != nil {
		c.writeStoreError(w, r, "history", err)
		return
	}
	if points == nil {
		points = []types.HistoryPoint{}
	}
	utils.WriteJSON(w, http.StatusOK, historyResponse{Success: true, Count: len(points), Data: points})
}

// handleAlerts evaluates the rules against the raw snapshot. An empty
// snapshot yields no alerts rather than a 404.
func (c *telemetryControllerImpl) handleAlerts(w http.ResponseWriter, r *http.Request) {
	snap, err := c.repository.GetAlertSnapshot(r.Context())
	if err != nil {
		c.writeStoreError(w, r, "alerts", err)
		return
	}
	alerts := alerting.Evaluate(snap, c.rules)
	for _, a := range alerts {
		c.metrics.AlertRaised(a.Parameter)
	}
	utils.WriteJSON(w, http.StatusOK, alertsResponse{Success: true, AlertCount: len(alerts), Alerts: alerts})
}

func (c *telemetryControllerImpl) writeStoreError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		c.logger.InfoContext(r.Context(), "client went away before store query completed", "endpoint", endpoint)
		return
	}

	status := http.StatusInternalServerError
	if errors.Is(err, store.ErrStoreTimeout) {
		status = http.StatusGatewayTimeout
	}
	c.logger.ErrorContext(r.Context(), "store query failed",
		"endpoint", endpoint,
		"status", status,
		"error", err,
	)
	utils.WriteFailure(w, status, err.Error())
}
