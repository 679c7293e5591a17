package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

// WriteError writes the operational error shape {error, message} used by
// health and routing failures.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]any{
		"error":   http.StatusText(status),
		"message": msg,
	})
}

// Failure is the API error envelope. Store failures fill Error; a missing
// resource fills Message.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func WriteFailure(w http.ResponseWriter, status int, errMsg string) {
	WriteJSON(w, status, Failure{Error: errMsg})
}

func WriteNotFound(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusNotFound, Failure{Message: msg})
}
