package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"biogas-server/internal/store"
	"biogas-server/internal/utils"
)

const pingTimeout = 3 * time.Second

type healthchecker interface {
	handleHealth(w http.ResponseWriter, r *http.Request)
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	store store.Store
}

func NewHealthchecker(s store.Store) healthchecker {
	return &healthcheckerImpl{store: s}
}

// handleHealth reports the configured backend without contacting it.
func (h *healthcheckerImpl) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": h.store.Kind(),
	})
}

// handleHealthz pings the store.
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		slog.ErrorContext(r.Context(), "failed to check store connectivity", "store", h.store.Kind(), "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check store connectivity")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, s store.Store) {
	healthchecker := NewHealthchecker(s)
	mux.HandleFunc("GET /api/health", healthchecker.handleHealth)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
