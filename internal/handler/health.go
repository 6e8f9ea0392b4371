package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/leadio/leadio-server/internal/storage"
)

type HealthHandler struct {
	db      *sqlx.DB
	storage storage.Backend
	email   interface{ Configured() bool }
	started time.Time
}

func NewHealthHandler(db *sqlx.DB, backend storage.Backend, email interface{ Configured() bool }) *HealthHandler {
	return &HealthHandler{
		db:      db,
		storage: backend,
		email:   email,
		started: time.Now(),
	}
}

// Root serves the service banner for uptime probes that hit "/".
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "leadio-server",
		"status":  "running",
	})
}

// Health reports aggregate status. Returns 503 when the database or
// storage backend is unreachable; a missing email provider only degrades.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbOK := h.db.PingContext(r.Context()) == nil
	storageOK := h.storage.HealthCheck(r.Context()) == nil
	emailOK := h.email.Configured()

	status := "ok"
	code := http.StatusOK
	if !dbOK || !storageOK {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else if !emailOK {
		status = "degraded"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"services": map[string]string{
			"database": boolStatus(dbOK),
			"storage":  boolStatus(storageOK),
			"email":    boolStatus(emailOK),
		},
	})
}

// Detailed adds per-check latency and process runtime stats.
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	dbStart := time.Now()
	dbErr := h.db.PingContext(r.Context())
	dbLatency := time.Since(dbStart)

	storageStart := time.Now()
	storageErr := h.storage.HealthCheck(r.Context())
	storageLatency := time.Since(storageStart)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := "ok"
	code := http.StatusOK
	if dbErr != nil || storageErr != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks": map[string]any{
			"database": map[string]any{
				"status":         boolStatus(dbErr == nil),
				"responseTimeMs": dbLatency.Milliseconds(),
				"error":          errString(dbErr),
			},
			"storage": map[string]any{
				"status":         boolStatus(storageErr == nil),
				"backend":        h.storage.Name(),
				"responseTimeMs": storageLatency.Milliseconds(),
				"error":          errString(storageErr),
			},
			"email": map[string]any{
				"status": boolStatus(h.email.Configured()),
			},
		},
		"runtime": map[string]any{
			"uptimeSeconds":  int64(time.Since(h.started).Seconds()),
			"goroutines":     runtime.NumGoroutine(),
			"heapAllocBytes": mem.HeapAlloc,
			"sysBytes":       mem.Sys,
			"numGC":          mem.NumGC,
		},
	})
}

func boolStatus(ok bool) string {
	if ok {
		return "connected"
	}
	return "unavailable"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
