package routes

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/leadio/leadio-server/internal/app"
	"github.com/leadio/leadio-server/internal/handler"
	"github.com/leadio/leadio-server/internal/middleware"
	"github.com/leadio/leadio-server/internal/storage"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	report := handler.NewReportHandler(app.ReportService, app.CleanupService, app.Cfg.IsProduction())
	health := handler.NewHealthHandler(app.DB, app.Storage, app.EmailService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /{$}", health.Root)
	mux.HandleFunc("GET /health", health.Health)
	mux.HandleFunc("GET /health/detailed", health.Detailed)

	// Generated report files when running on the local backend. S3 and
	// Cloudinary serve their own URLs.
	if local, ok := app.Storage.(*storage.LocalBackend); ok {
		mux.Handle("GET /reports/", http.StripPrefix("/reports/", http.FileServer(http.Dir(local.Root()))))
	}

	// ============================================================================
	// API ROUTES (rate limited, body capped)
	// ============================================================================

	requireAuth := middleware.RequireAuth(app.AuthService)
	requireAPIKey := middleware.RequireAPIKey(app.Cfg.APISecretKey)

	api := http.NewServeMux()

	// System endpoints called by the workflow engine
	api.HandleFunc("POST /api/reports", requireAPIKey(report.Create))
	api.HandleFunc("POST /api/reports/cleanup", requireAPIKey(report.Cleanup))

	// User endpoints
	api.HandleFunc("GET /api/reports", requireAuth(report.List))
	api.HandleFunc("GET /api/reports/stats/summary", requireAuth(report.Stats))
	api.HandleFunc("GET /api/reports/{id}", requireAuth(report.Get))
	api.HandleFunc("POST /api/reports/{id}/email", requireAuth(report.Email))
	api.HandleFunc("DELETE /api/reports/{id}", requireAuth(report.Delete))

	mux.Handle("/api/", middleware.Chain(
		api,
		middleware.RateLimit(app.Cfg.RateLimitMax, app.Cfg.RateLimitWindow),
		middleware.MaxBody(app.Cfg.MaxBodyBytes),
	))

	// Global middleware - executed in order (top to bottom)
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{app.Cfg.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "x-api-key"},
		AllowCredentials: true,
	})

	return middleware.Chain(
		mux,
		middleware.Recover(app.Cfg.IsProduction()),
		corsHandler.Handler,
		middleware.RequestLogging,
	)
}
