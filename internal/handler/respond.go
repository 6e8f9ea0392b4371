package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/leadio/leadio-server/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeData wraps a successful payload in the standard {success, data} shape.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": true,
		"message": message,
	})
}

// writeError maps an error through the taxonomy onto the standard
// {error, message} shape. Internal errors are logged and, in production,
// redacted.
func writeError(w http.ResponseWriter, r *http.Request, err error, isProduction bool) {
	kind := apperr.KindOf(err)
	message := apperr.Message(err)

	if kind == apperr.Internal || kind == apperr.Persistence || kind == apperr.Storage {
		slog.Error("request failed",
			"error", err,
			"url", r.URL.String(),
			"method", r.Method,
		)
	}
	if kind == apperr.Internal && isProduction {
		message = "Something went wrong. Please try again later."
	}

	writeJSON(w, kind.HTTPStatus(), map[string]string{
		"error":   kind.Title(),
		"message": message,
	})
}
