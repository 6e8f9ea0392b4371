package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/leadio/leadio-server/internal/ctxkeys"
	"github.com/leadio/leadio-server/internal/service"
)

const testJWTSecret = "test-secret"

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestRequireAuth(t *testing.T) {
	authService := service.NewAuthService(testJWTSecret)

	var gotUserID string
	called := false
	handler := RequireAuth(authService)(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotUserID = ctxkeys.UserID(r.Context())
	})

	token := signTestToken(t, testJWTSecret, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !called {
		t.Fatal("handler not called for valid token")
	}
	if gotUserID != "user-1" {
		t.Errorf("user id in context = %q, want user-1", gotUserID)
	}
}

func TestRequireAuthRejections(t *testing.T) {
	authService := service.NewAuthService(testJWTSecret)

	wrongKey := signTestToken(t, "other-secret", jwt.MapClaims{"user_id": "u"})
	noIdentity := signTestToken(t, testJWTSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.token"},
		{"wrong key", "Bearer " + wrongKey},
		{"no identity claim", "Bearer " + noIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := RequireAuth(authService)(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if called {
				t.Error("handler reached despite invalid credentials")
			}
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	called := false
	handler := RequireAPIKey("secret-key")(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodPost, "/api/reports", nil)
	req.Header.Set("x-api-key", "secret-key")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK || !called {
		t.Errorf("status = %d, called = %v, want 200 and handler reached", rec.Code, called)
	}
}

func TestRequireAPIKeyRejectsBeforeHandler(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"missing", ""},
		{"wrong", "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := RequireAPIKey("secret-key")(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			req := httptest.NewRequest(http.MethodPost, "/api/reports", nil)
			if tt.key != "" {
				req.Header.Set("x-api-key", tt.key)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if called {
				t.Error("handler reached without valid API key")
			}
		})
	}
}
