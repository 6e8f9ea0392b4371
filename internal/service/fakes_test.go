package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/leadio/leadio-server/internal/model"
	"github.com/leadio/leadio-server/internal/repository"
	"github.com/leadio/leadio-server/internal/storage"
)

// fakeRepository is an in-memory repository.ReportRepository.
type fakeRepository struct {
	reports map[string]*model.Report
	ttl     time.Duration

	createErr     error
	softDeleteErr map[string]error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		reports:       map[string]*model.Report{},
		ttl:           30 * 24 * time.Hour,
		softDeleteErr: map[string]error{},
	}
}

func (f *fakeRepository) Create(ctx context.Context, report *model.Report) error {
	if f.createErr != nil {
		return f.createErr
	}
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.Status == "" {
		report.Status = model.ReportStatusActive
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	report.UpdatedAt = report.CreatedAt
	if report.ExpiresAt.IsZero() {
		report.ExpiresAt = report.CreatedAt.Add(f.ttl)
	}
	clone := *report
	f.reports[report.ID] = &clone
	return nil
}

func (f *fakeRepository) ByID(ctx context.Context, id string) (*model.Report, error) {
	report, ok := f.reports[id]
	if !ok {
		return nil, repository.ErrReportNotFound
	}
	clone := *report
	return &clone, nil
}

func (f *fakeRepository) ByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]*model.Report, error) {
	if opts.Status == "" {
		opts.Status = model.ReportStatusActive
	}
	var out []*model.Report
	for _, report := range f.reports {
		if report.UserID != userID {
			continue
		}
		if opts.Status != "all" && report.Status != opts.Status {
			continue
		}
		clone := *report
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeRepository) CountByUser(ctx context.Context, userID, status string) (int, error) {
	if status == "" {
		status = model.ReportStatusActive
	}
	count := 0
	for _, report := range f.reports {
		if report.UserID != userID {
			continue
		}
		if status != "all" && report.Status != status {
			continue
		}
		count++
	}
	return count, nil
}

func (f *fakeRepository) Update(ctx context.Context, id string, fields repository.UpdateFields) (*model.Report, error) {
	report, ok := f.reports[id]
	if !ok {
		return nil, repository.ErrReportNotFound
	}
	if fields.ReportTitle == nil && fields.IsEmailed == nil && fields.Status == nil {
		return nil, repository.ErrNoUpdateFields
	}
	if fields.Status != nil && report.Status == model.ReportStatusDeleted && *fields.Status == model.ReportStatusActive {
		return nil, repository.ErrNoUndelete
	}
	if fields.ReportTitle != nil {
		report.ReportTitle = *fields.ReportTitle
	}
	if fields.IsEmailed != nil {
		report.IsEmailed = *fields.IsEmailed
	}
	if fields.Status != nil {
		report.Status = *fields.Status
	}
	report.UpdatedAt = time.Now().UTC()
	clone := *report
	return &clone, nil
}

func (f *fakeRepository) SoftDelete(ctx context.Context, id string) error {
	if err := f.softDeleteErr[id]; err != nil {
		return err
	}
	status := model.ReportStatusDeleted
	_, err := f.Update(ctx, id, repository.UpdateFields{Status: &status})
	return err
}

func (f *fakeRepository) HardDelete(ctx context.Context, id string) error {
	delete(f.reports, id)
	return nil
}

func (f *fakeRepository) Expired(ctx context.Context, now time.Time) ([]*model.Report, error) {
	var out []*model.Report
	for _, report := range f.reports {
		if report.Status == model.ReportStatusActive && report.ExpiresAt.Before(now) {
			clone := *report
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (f *fakeRepository) ExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]*model.Report, error) {
	var out []*model.Report
	for _, report := range f.reports {
		if report.Status != model.ReportStatusActive {
			continue
		}
		if report.ExpiresAt.After(now) && !report.ExpiresAt.After(now.Add(window)) {
			clone := *report
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (f *fakeRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	for id, report := range f.reports {
		if report.Status == model.ReportStatusDeleted && report.UpdatedAt.Before(cutoff) {
			delete(f.reports, id)
			purged++
		}
	}
	return purged, nil
}

func (f *fakeRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	count := 0
	for _, report := range f.reports {
		if report.Status == status {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) CountExpired(ctx context.Context, now time.Time) (int, error) {
	count := 0
	for _, report := range f.reports {
		if report.Status == model.ReportStatusActive && report.ExpiresAt.Before(now) {
			count++
		}
	}
	return count, nil
}

// fakeBackend records uploads and deletes in memory.
type fakeBackend struct {
	objects map[string]string

	uploadErr error
	deleteErr error
	deletes   []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{objects: map[string]string{}}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Upload(ctx context.Context, html string, meta storage.UploadMeta) (*storage.UploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	key := meta.UserID + "/" + storage.SiteName(meta.WebsiteURL) + ".html"
	f.objects[key] = html
	return &storage.UploadResult{
		URL:       "https://cdn.test/" + key,
		Key:       key,
		FileSize:  int64(len(html)),
		CreatedAt: time.Now(),
	}, nil
}

func (f *fakeBackend) Delete(ctx context.Context, keyOrURL string) (bool, error) {
	f.deletes = append(f.deletes, keyOrURL)
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	_, ok := f.objects[keyOrURL]
	delete(f.objects, keyOrURL)
	return ok, nil
}

func (f *fakeBackend) Info(ctx context.Context, keyOrURL string) (*storage.ObjectInfo, error) {
	html, ok := f.objects[keyOrURL]
	if !ok {
		return nil, nil
	}
	return &storage.ObjectInfo{Size: int64(len(html))}, nil
}

func (f *fakeBackend) HealthCheck(ctx context.Context) error { return nil }

// fakeMailer records sent report emails.
type fakeMailer struct {
	sent    []ReportEmail
	sendErr error
}

func (f *fakeMailer) SendReport(ctx context.Context, email ReportEmail) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, email)
	return nil
}

var errBoom = errors.New("boom")
