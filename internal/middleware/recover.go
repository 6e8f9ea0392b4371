package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// Recover is the final safety net: truly unexpected panics are logged with
// full context and answered with the standard JSON error shape. Production
// responses never expose internal error text.
func Recover(isProduction bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				slog.Error("panic recovered",
					"panic", rec,
					"url", r.URL.String(),
					"method", r.Method,
					"timestamp", time.Now().Format(time.RFC3339),
					"stack", string(debug.Stack()),
				)

				message := "Something went wrong. Please try again later."
				if !isProduction {
					message = "panic: " + toString(rec)
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "Internal Server Error",
					"message": message,
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func toString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown error"
}
