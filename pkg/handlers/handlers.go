// Package handlers writes the JSON responses shared by every domain handler.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes err as an ErrorBody. 5xx responses are logged at
// error level and the rest at warn.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	level, msg := slog.LevelWarn, "request rejected"
	if status >= http.StatusInternalServerError {
		level, msg = slog.LevelError, "handler error"
	}
	logger.Log(context.Background(), level, msg, "status", status, "error", err)
	RespondJSON(w, status, ErrorBody{Error: err.Error()})
}
