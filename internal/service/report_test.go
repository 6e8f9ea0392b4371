package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leadio/leadio-server/internal/apperr"
	"github.com/leadio/leadio-server/internal/model"
	"github.com/leadio/leadio-server/internal/repository"
)

func newTestReportService() (*ReportService, *fakeRepository, *fakeBackend, *fakeMailer) {
	repo := newFakeRepository()
	backend := newFakeBackend()
	mailer := &fakeMailer{}
	svc := NewReportService(repo, backend, mailer)
	svc.dispatch = func(fn func()) { fn() } // run async work inline
	return svc, repo, backend, mailer
}

func validInput() CreateReportInput {
	return CreateReportInput{
		UserID:      "user-1",
		HTMLContent: "<html><body>report</body></html>",
		WebsiteURL:  "https://example.com",
	}
}

func TestCreate(t *testing.T) {
	svc, repo, backend, _ := newTestReportService()

	result, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if result.ReportID == "" {
		t.Error("ReportID is empty")
	}
	if result.ReportURL == "" {
		t.Error("ReportURL is empty")
	}
	if result.ExpiresAt.IsZero() {
		t.Error("ExpiresAt is zero")
	}

	stored, err := repo.ByID(context.Background(), result.ReportID)
	if err != nil {
		t.Fatalf("report row missing: %v", err)
	}
	if stored.ReportTitle != "SEO Report - https://example.com" {
		t.Errorf("default title = %q", stored.ReportTitle)
	}
	if stored.StorageKey == nil {
		t.Fatal("StorageKey not persisted")
	}
	if _, ok := backend.objects[*stored.StorageKey]; !ok {
		t.Error("uploaded object missing from backend")
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, backend, _ := newTestReportService()

	tests := []struct {
		name  string
		input CreateReportInput
	}{
		{"missing user", CreateReportInput{HTMLContent: "<html></html>", WebsiteURL: "https://example.com"}},
		{"missing html", CreateReportInput{UserID: "u", WebsiteURL: "https://example.com"}},
		{"missing website", CreateReportInput{UserID: "u", HTMLContent: "<html></html>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			if apperr.KindOf(err) != apperr.Validation {
				t.Errorf("Create() error kind = %v, want Validation", apperr.KindOf(err))
			}
		})
	}

	if len(backend.objects) != 0 {
		t.Error("validation failure must not reach storage")
	}
}

func TestCreateCompensatesOnInsertFailure(t *testing.T) {
	svc, repo, backend, _ := newTestReportService()
	repo.createErr = apperr.E(apperr.Persistence, "insert failed", errBoom)

	_, err := svc.Create(context.Background(), validInput())
	if apperr.KindOf(err) != apperr.Persistence {
		t.Fatalf("Create() error kind = %v, want Persistence", apperr.KindOf(err))
	}

	// The uploaded object must be removed again.
	if len(backend.objects) != 0 {
		t.Errorf("backend still holds %d objects, want 0", len(backend.objects))
	}
	if len(backend.deletes) != 1 {
		t.Errorf("backend deletes = %d, want exactly one compensating delete", len(backend.deletes))
	}
}

func TestCreateSendsEmailAndMarksEmailed(t *testing.T) {
	svc, repo, _, mailer := newTestReportService()

	input := validInput()
	input.UserEmail = "owner@example.com"

	result, err := svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(mailer.sent))
	}
	if mailer.sent[0].To != "owner@example.com" {
		t.Errorf("email To = %q", mailer.sent[0].To)
	}

	stored, _ := repo.ByID(context.Background(), result.ReportID)
	if !stored.IsEmailed {
		t.Error("IsEmailed = false after successful email")
	}
}

func TestCreateEmailFailureDoesNotFailCreate(t *testing.T) {
	svc, repo, _, mailer := newTestReportService()
	mailer.sendErr = errBoom

	input := validInput()
	input.UserEmail = "owner@example.com"

	result, err := svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("Create() error = %v, email failure must not fail the create", err)
	}

	stored, _ := repo.ByID(context.Background(), result.ReportID)
	if stored.IsEmailed {
		t.Error("IsEmailed = true after failed email")
	}
}

func TestGetOwnership(t *testing.T) {
	svc, repo, _, _ := newTestReportService()

	report := &model.Report{UserID: "owner"}
	repo.Create(context.Background(), report)

	_, err := svc.Get(context.Background(), "owner", report.ID)
	if err != nil {
		t.Errorf("Get() by owner error = %v", err)
	}

	_, err = svc.Get(context.Background(), "intruder", report.ID)
	if apperr.KindOf(err) != apperr.Forbidden {
		t.Errorf("Get() by non-owner kind = %v, want Forbidden", apperr.KindOf(err))
	}

	_, err = svc.Get(context.Background(), "owner", "missing")
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("Get() missing kind = %v, want NotFound", apperr.KindOf(err))
	}
}

func TestList(t *testing.T) {
	svc, repo, _, _ := newTestReportService()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		repo.Create(ctx, &model.Report{UserID: "user-1", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	reports, total, err := svc.List(ctx, "user-1", repository.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("len(reports) = %d, want 2", len(reports))
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestStats(t *testing.T) {
	svc, repo, _, _ := newTestReportService()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		repo.Create(ctx, &model.Report{UserID: "user-1"})
	}
	deleted := &model.Report{UserID: "user-1"}
	repo.Create(ctx, deleted)
	repo.SoftDelete(ctx, deleted.ID)

	stats, err := svc.Stats(ctx, "user-1")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.ActiveCount != 7 {
		t.Errorf("ActiveCount = %d, want 7", stats.ActiveCount)
	}
	if stats.TotalCount != 8 {
		t.Errorf("TotalCount = %d, want 8", stats.TotalCount)
	}
	if len(stats.RecentReports) != 5 {
		t.Errorf("len(RecentReports) = %d, want 5", len(stats.RecentReports))
	}
}

func TestEmail(t *testing.T) {
	svc, repo, _, mailer := newTestReportService()
	ctx := context.Background()

	report := &model.Report{UserID: "owner", ReportTitle: "Audit"}
	repo.Create(ctx, report)

	err := svc.Email(ctx, "owner", report.ID, "dest@example.com", "Kai")
	if err != nil {
		t.Fatalf("Email() error = %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].To != "dest@example.com" {
		t.Fatalf("sent = %+v, want one email to dest@example.com", mailer.sent)
	}
	if mailer.sent[0].UserName != "Kai" {
		t.Errorf("UserName = %q, want Kai", mailer.sent[0].UserName)
	}

	stored, _ := repo.ByID(ctx, report.ID)
	if !stored.IsEmailed {
		t.Error("IsEmailed = false after Email()")
	}
}

func TestEmailOwnership(t *testing.T) {
	svc, repo, _, mailer := newTestReportService()
	ctx := context.Background()

	report := &model.Report{UserID: "owner"}
	repo.Create(ctx, report)

	err := svc.Email(ctx, "intruder", report.ID, "x@example.com", "")
	if apperr.KindOf(err) != apperr.Forbidden {
		t.Errorf("Email() kind = %v, want Forbidden", apperr.KindOf(err))
	}
	if len(mailer.sent) != 0 {
		t.Error("email sent despite ownership failure")
	}
}

func TestEmailSendFailure(t *testing.T) {
	svc, repo, _, mailer := newTestReportService()
	ctx := context.Background()
	mailer.sendErr = errBoom

	report := &model.Report{UserID: "owner"}
	repo.Create(ctx, report)

	err := svc.Email(ctx, "owner", report.ID, "x@example.com", "")
	if apperr.KindOf(err) != apperr.Internal {
		t.Errorf("Email() kind = %v, want Internal", apperr.KindOf(err))
	}

	stored, _ := repo.ByID(ctx, report.ID)
	if stored.IsEmailed {
		t.Error("IsEmailed = true after failed send")
	}
}

func TestDeleteSoft(t *testing.T) {
	svc, repo, backend, _ := newTestReportService()
	ctx := context.Background()

	key := "owner/EXAMPLE.html"
	backend.objects[key] = "<html></html>"
	report := &model.Report{UserID: "owner", StorageKey: &key}
	repo.Create(ctx, report)

	err := svc.Delete(ctx, "owner", report.ID, false)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	stored, _ := repo.ByID(ctx, report.ID)
	if stored.Status != model.ReportStatusDeleted {
		t.Errorf("Status = %q, want deleted", stored.Status)
	}
	// Soft delete keeps the object; the purge cycle removes it later.
	if _, ok := backend.objects[key]; !ok {
		t.Error("soft delete removed the storage object")
	}
}

func TestDeletePermanent(t *testing.T) {
	svc, repo, backend, _ := newTestReportService()
	ctx := context.Background()

	key := "owner/EXAMPLE.html"
	backend.objects[key] = "<html></html>"
	report := &model.Report{UserID: "owner", StorageKey: &key}
	repo.Create(ctx, report)

	err := svc.Delete(ctx, "owner", report.ID, true)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err = repo.ByID(ctx, report.ID)
	if !errors.Is(err, repository.ErrReportNotFound) {
		t.Error("report row still present after permanent delete")
	}
	if _, ok := backend.objects[key]; ok {
		t.Error("storage object still present after permanent delete")
	}
}

func TestDeletePermanentStorageFailureStillDeletesRow(t *testing.T) {
	svc, repo, backend, _ := newTestReportService()
	ctx := context.Background()
	backend.deleteErr = errBoom

	report := &model.Report{UserID: "owner"}
	repo.Create(ctx, report)

	err := svc.Delete(ctx, "owner", report.ID, true)
	if err != nil {
		t.Fatalf("Delete() error = %v, storage failure must not block row delete", err)
	}

	if _, ok := repo.reports[report.ID]; ok {
		t.Error("report row still present")
	}
}
