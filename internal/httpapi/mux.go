package httpapi

import (
	"net/http"

	"biogas-server/internal/metrics"
	"biogas-server/internal/store"
	"biogas-server/internal/utils"
)

const rootMessage = "Biogas Monitoring API is running!"

func NewMux(s store.Store, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, s)
	mux.HandleFunc("GET /{$}", handleRoot)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"message": rootMessage,
		"status":  "online",
	})
}
