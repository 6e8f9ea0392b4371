package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/leadio/leadio-server/internal/ctxkeys"
	"github.com/leadio/leadio-server/internal/service"
)

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "Unauthorized",
		"message": message,
	})
}

// RequireAuth validates the bearer token and attaches the user identity to
// the request context. Requests without a valid token never reach the
// handler.
func RequireAuth(authService *service.AuthService) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w, "Missing or invalid authorization header")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := authService.VerifyJWT(token)
			if err != nil {
				unauthorized(w, "Token verification failed")
				return
			}

			userID := service.UserID(claims)
			if userID == "" {
				unauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ctxkeys.WithUserID(r.Context(), userID)))
		}
	}
}

// RequireAPIKey guards system-to-system routes (workflow engine, cleanup
// trigger) with a constant-time x-api-key comparison. Rejection happens
// before any storage or database work.
func RequireAPIKey(secret string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("x-api-key")
			if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
				unauthorized(w, "Valid API key required")
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}
