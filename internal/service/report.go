package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/leadio/leadio-server/internal/apperr"
	"github.com/leadio/leadio-server/internal/model"
	"github.com/leadio/leadio-server/internal/repository"
	"github.com/leadio/leadio-server/internal/storage"
)

// ReportMailer is the slice of EmailService the report lifecycle needs.
type ReportMailer interface {
	SendReport(ctx context.Context, email ReportEmail) error
}

// CreateReportInput is the system-to-system payload from the workflow engine.
type CreateReportInput struct {
	UserID      string
	HTMLContent string
	WebsiteURL  string
	ReportTitle string
	UserEmail   string
}

// CreateReportResult is returned to the workflow engine.
type CreateReportResult struct {
	ReportID  string
	ReportURL string
	ExpiresAt time.Time
}

// ReportStats summarizes a user's reports for the dashboard.
type ReportStats struct {
	ActiveCount   int
	TotalCount    int
	RecentReports []*model.Report
}

type ReportService struct {
	repo    repository.ReportRepository
	storage storage.Backend
	mailer  ReportMailer

	// dispatch runs fire-and-forget work; replaced in tests to run inline.
	dispatch func(fn func())
}

func NewReportService(repo repository.ReportRepository, backend storage.Backend, mailer ReportMailer) *ReportService {
	return &ReportService{
		repo:     repo,
		storage:  backend,
		mailer:   mailer,
		dispatch: func(fn func()) { go fn() },
	}
}

// Create uploads the report body and persists its metadata. If the metadata
// insert fails, the uploaded object is compensating-deleted and the error is
// returned; a report must never exist in storage without a row that owns it.
func (s *ReportService) Create(ctx context.Context, input CreateReportInput) (*CreateReportResult, error) {
	if input.UserID == "" || input.HTMLContent == "" || input.WebsiteURL == "" {
		return nil, apperr.Errorf(apperr.Validation, "Missing required fields: userId, htmlContent, websiteUrl")
	}
	if input.ReportTitle == "" {
		input.ReportTitle = "SEO Report - " + input.WebsiteURL
	}

	upload, err := s.storage.Upload(ctx, input.HTMLContent, storage.UploadMeta{
		UserID:      input.UserID,
		WebsiteURL:  input.WebsiteURL,
		ReportTitle: input.ReportTitle,
	})
	if err != nil {
		return nil, err
	}

	report := &model.Report{
		UserID:      input.UserID,
		ReportURL:   upload.URL,
		StorageKey:  &upload.Key,
		ReportTitle: input.ReportTitle,
		WebsiteURL:  input.WebsiteURL,
		FileSize:    &upload.FileSize,
	}

	err = s.repo.Create(ctx, report)
	if err != nil {
		slog.Error("report insert failed after upload, removing stored object",
			"error", err, "key", upload.Key, "user_id", input.UserID)
		_, delErr := s.storage.Delete(ctx, upload.Key)
		if delErr != nil {
			// The object is orphaned; the key is logged for manual cleanup.
			slog.Error("compensating storage delete failed", "error", delErr, "key", upload.Key)
		}
		return nil, err
	}

	slog.Info("report created", "report_id", report.ID, "user_id", input.UserID, "website", input.WebsiteURL)

	if input.UserEmail != "" {
		s.sendReportEmailAsync(report, input.UserEmail)
	}

	return &CreateReportResult{
		ReportID:  report.ID,
		ReportURL: report.ReportURL,
		ExpiresAt: report.ExpiresAt,
	}, nil
}

// sendReportEmailAsync dispatches the notification off the request path.
// Email failure is logged and never surfaces to the creator.
func (s *ReportService) sendReportEmailAsync(report *model.Report, to string) {
	s.dispatch(func() {
		defer func() {
			r := recover()
			if r != nil {
				slog.Error("report email dispatch panicked", "panic", r, "report_id", report.ID)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := s.mailer.SendReport(ctx, ReportEmail{
			To:             to,
			ReportTitle:    report.ReportTitle,
			WebsiteURL:     report.WebsiteURL,
			ReportURL:      report.ReportURL,
			ExpirationDays: report.DaysUntilExpiry(time.Now()),
		})
		if err != nil {
			slog.Error("failed to send report email", "error", err, "report_id", report.ID, "to", to)
			return
		}

		emailed := true
		_, err = s.repo.Update(ctx, report.ID, repository.UpdateFields{IsEmailed: &emailed})
		if err != nil {
			slog.Warn("failed to mark report as emailed", "error", err, "report_id", report.ID)
		}
	})
}

// Get fetches a report for its owner. Reports owned by someone else return a
// Forbidden error, distinct from NotFound.
func (s *ReportService) Get(ctx context.Context, requesterID, id string) (*model.Report, error) {
	report, err := s.repo.ByID(ctx, id)
	if errors.Is(err, repository.ErrReportNotFound) {
		return nil, apperr.E(apperr.NotFound, "Report not found", err)
	}
	if err != nil {
		return nil, err
	}
	if report.UserID != requesterID {
		return nil, apperr.Errorf(apperr.Forbidden, "Access denied")
	}
	return report, nil
}

// List returns a page of the requester's reports plus the total count for
// pagination.
func (s *ReportService) List(ctx context.Context, requesterID string, opts repository.ListOptions) ([]*model.Report, int, error) {
	reports, err := s.repo.ByUser(ctx, requesterID, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountByUser(ctx, requesterID, opts.Status)
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

// Stats returns the requester's report counts and most recent reports.
func (s *ReportService) Stats(ctx context.Context, requesterID string) (*ReportStats, error) {
	active, err := s.repo.CountByUser(ctx, requesterID, model.ReportStatusActive)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountByUser(ctx, requesterID, "all")
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.ByUser(ctx, requesterID, repository.ListOptions{Limit: 5})
	if err != nil {
		return nil, err
	}
	return &ReportStats{ActiveCount: active, TotalCount: total, RecentReports: recent}, nil
}

// Email re-sends the report to the given address and marks it emailed.
func (s *ReportService) Email(ctx context.Context, requesterID, id, to, userName string) error {
	report, err := s.Get(ctx, requesterID, id)
	if err != nil {
		return err
	}

	err = s.mailer.SendReport(ctx, ReportEmail{
		To:             to,
		ReportTitle:    report.ReportTitle,
		WebsiteURL:     report.WebsiteURL,
		ReportURL:      report.ReportURL,
		UserName:       userName,
		ExpirationDays: report.DaysUntilExpiry(time.Now()),
	})
	if err != nil {
		return apperr.E(apperr.Internal, "Failed to send email", err)
	}

	emailed := true
	_, err = s.repo.Update(ctx, id, repository.UpdateFields{IsEmailed: &emailed})
	return err
}

// Delete soft-deletes by default. A permanent delete first attempts to remove
// the storage object; storage failure is logged and never blocks the row
// deletion.
func (s *ReportService) Delete(ctx context.Context, requesterID, id string, permanent bool) error {
	report, err := s.Get(ctx, requesterID, id)
	if err != nil {
		return err
	}

	if !permanent {
		return s.repo.SoftDelete(ctx, id)
	}

	_, err = s.storage.Delete(ctx, s.storageRef(report))
	if err != nil {
		slog.Warn("failed to delete report object from storage", "error", err, "report_id", id)
	}

	return s.repo.HardDelete(ctx, id)
}

// storageRef prefers the stored object key; legacy rows fall back to the URL.
func (s *ReportService) storageRef(report *model.Report) string {
	if report.StorageKey != nil && *report.StorageKey != "" {
		return *report.StorageKey
	}
	return report.ReportURL
}
