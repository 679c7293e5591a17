package httpapi

import (
	"net/http"
	"time"

	"biogas-server/internal/config"
	"biogas-server/internal/metrics"
)

// NewServer wraps mux in request id, logging/metrics and CORS middleware.
func NewServer(cfg config.Config, mux *http.ServeMux, m *metrics.Metrics) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           Handler(mux, m),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func Handler(mux *http.ServeMux, m *metrics.Metrics) http.Handler {
	return requestID(requestLogger(m, cors(mux)))
}
