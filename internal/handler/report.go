package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/leadio/leadio-server/internal/ctxkeys"
	"github.com/leadio/leadio-server/internal/model"
	"github.com/leadio/leadio-server/internal/repository"
	"github.com/leadio/leadio-server/internal/service"
)

type ReportHandler struct {
	reportService  *service.ReportService
	cleanupService *service.CleanupService
	isProduction   bool
}

func NewReportHandler(reportService *service.ReportService, cleanupService *service.CleanupService, isProduction bool) *ReportHandler {
	return &ReportHandler{
		reportService:  reportService,
		cleanupService: cleanupService,
		isProduction:   isProduction,
	}
}

type createReportRequest struct {
	UserID      string `json:"userId"`
	HTMLContent string `json:"htmlContent"`
	WebsiteURL  string `json:"websiteUrl"`
	ReportTitle string `json:"reportTitle"`
	UserEmail   string `json:"userEmail"`
}

// Create receives a finished report from the workflow engine (API-key path).
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "Bad Request",
			"message": "Invalid JSON body",
		})
		return
	}

	result, err := h.reportService.Create(r.Context(), service.CreateReportInput{
		UserID:      req.UserID,
		HTMLContent: req.HTMLContent,
		WebsiteURL:  req.WebsiteURL,
		ReportTitle: req.ReportTitle,
		UserEmail:   req.UserEmail,
	})
	if err != nil {
		writeError(w, r, err, h.isProduction)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Report created successfully",
		"data": map[string]any{
			"reportId":  result.ReportID,
			"reportUrl": result.ReportURL,
			"expiresAt": result.ExpiresAt,
		},
	})
}

// List returns the authenticated user's reports with pagination metadata.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	status := r.URL.Query().Get("status")
	if status == "" {
		status = model.ReportStatusActive
	}

	reports, total, err := h.reportService.List(r.Context(), userID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
		Status: status,
	})
	if err != nil {
		writeError(w, r, err, h.isProduction)
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"reports": reportsJSON(reports),
		"pagination": map[string]any{
			"total":   total,
			"limit":   limit,
			"offset":  offset,
			"hasMore": total > offset+limit,
		},
	})
}

// Get returns one report; 403 when owned by another user, 404 when absent.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	report, err := h.reportService.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, h.isProduction)
		return
	}
	writeData(w, http.StatusOK, report.JSON())
}

type emailReportRequest struct {
	Email    string `json:"email"`
	UserName string `json:"userName"`
}

func (h *ReportHandler) Email(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	var req emailReportRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "Bad Request",
			"message": "Email address is required",
		})
		return
	}

	err = h.reportService.Email(r.Context(), userID, r.PathValue("id"), req.Email, req.UserName)
	if err != nil {
		writeError(w, r, err, h.isProduction)
		return
	}

	writeMessage(w, http.StatusOK, "Report sent to email successfully")
}

func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	permanent := r.URL.Query().Get("permanent") == "true"

	err := h.reportService.Delete(r.Context(), userID, r.PathValue("id"), permanent)
	if err != nil {
		writeError(w, r, err, h.isProduction)
		return
	}

	message := "Report deleted"
	if permanent {
		message = "Report permanently deleted"
	}
	writeMessage(w, http.StatusOK, message)
}

// Cleanup manually triggers the expire cycle (API-key path).
func (h *ReportHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cleanupService.ExpireCycle(r.Context())
	if err != nil {
		writeError(w, r, err, h.isProduction)
		return
	}
	writeMessage(w, http.StatusOK, "Cleaned up "+strconv.Itoa(stats.Cleaned)+" expired reports")
}

// Stats returns the user's report counts and most recent reports.
func (h *ReportHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	stats, err := h.reportService.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, h.isProduction)
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"counts": map[string]int{
			"active": stats.ActiveCount,
			"total":  stats.TotalCount,
		},
		"recentReports": reportsJSON(stats.RecentReports),
	})
}

func reportsJSON(reports []*model.Report) []model.ReportJSON {
	out := make([]model.ReportJSON, 0, len(reports))
	for _, report := range reports {
		out = append(out, report.JSON())
	}
	return out
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
