package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/leadio/leadio-server/internal/apperr"
	"github.com/leadio/leadio-server/internal/model"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrNoUpdateFields = errors.New("no valid fields to update")
	ErrNoUndelete     = errors.New("deleted reports cannot be reactivated")
)

// ListOptions controls pagination and ordering for per-user listings.
type ListOptions struct {
	Limit    int
	Offset   int
	Status   string // "active", "deleted" or "all"
	OrderBy  string
	OrderDir string
}

// UpdateFields is the allow-list of mutable report columns. Anything not
// representable here cannot be updated.
type UpdateFields struct {
	ReportTitle *string
	IsEmailed   *bool
	Status      *string
}

type ReportRepository interface {
	Create(ctx context.Context, report *model.Report) error
	ByID(ctx context.Context, id string) (*model.Report, error)
	ByUser(ctx context.Context, userID string, opts ListOptions) ([]*model.Report, error)
	CountByUser(ctx context.Context, userID, status string) (int, error)
	Update(ctx context.Context, id string, fields UpdateFields) (*model.Report, error)
	SoftDelete(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
	Expired(ctx context.Context, now time.Time) ([]*model.Report, error)
	ExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]*model.Report, error)
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	CountExpired(ctx context.Context, now time.Time) (int, error)
}

// orderColumns is the whitelist for ORDER BY; caller input never reaches the
// query text directly.
var orderColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"expires_at": "expires_at",
}

type reportRepository struct {
	db  *sqlx.DB
	ttl time.Duration
}

func NewReportRepository(db *sqlx.DB, ttl time.Duration) *reportRepository {
	return &reportRepository{db: db, ttl: ttl}
}

func (r *reportRepository) Create(ctx context.Context, report *model.Report) error {
	now := time.Now().UTC()
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.Status == "" {
		report.Status = model.ReportStatusActive
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = report.CreatedAt
	if report.ExpiresAt.IsZero() {
		report.ExpiresAt = report.CreatedAt.Add(r.ttl)
	}

	query := `INSERT INTO seo_reports (id, user_id, report_url, storage_key, report_title, website_url, file_size, is_emailed, status, created_at, updated_at, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		report.ID,
		report.UserID,
		report.ReportURL,
		report.StorageKey,
		report.ReportTitle,
		report.WebsiteURL,
		report.FileSize,
		report.IsEmailed,
		report.Status,
		report.CreatedAt,
		report.UpdatedAt,
		report.ExpiresAt,
	)
	if err != nil {
		return apperr.E(apperr.Persistence, "failed to create report", err)
	}

	return nil
}

func (r *reportRepository) ByID(ctx context.Context, id string) (*model.Report, error) {
	report := &model.Report{}
	query := `SELECT * FROM seo_reports WHERE id = $1`

	err := r.db.GetContext(ctx, report, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, apperr.E(apperr.Persistence, "failed to fetch report", err)
	}

	return report, nil
}

func (r *reportRepository) ByUser(ctx context.Context, userID string, opts ListOptions) ([]*model.Report, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Status == "" {
		opts.Status = model.ReportStatusActive
	}

	column, ok := orderColumns[opts.OrderBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(opts.OrderDir, "asc") {
		direction = "ASC"
	}

	var reports []*model.Report
	var err error
	if opts.Status == "all" {
		query := fmt.Sprintf(`SELECT * FROM seo_reports WHERE user_id = $1 ORDER BY %s %s LIMIT $2 OFFSET $3`, column, direction)
		err = r.db.SelectContext(ctx, &reports, query, userID, opts.Limit, opts.Offset)
	} else {
		query := fmt.Sprintf(`SELECT * FROM seo_reports WHERE user_id = $1 AND status = $2 ORDER BY %s %s LIMIT $3 OFFSET $4`, column, direction)
		err = r.db.SelectContext(ctx, &reports, query, userID, opts.Status, opts.Limit, opts.Offset)
	}
	if err != nil {
		return nil, apperr.E(apperr.Persistence, "failed to list reports", err)
	}

	return reports, nil
}

func (r *reportRepository) CountByUser(ctx context.Context, userID, status string) (int, error) {
	var count int
	var err error
	if status == "" {
		status = model.ReportStatusActive
	}
	if status == "all" {
		err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM seo_reports WHERE user_id = $1`, userID)
	} else {
		err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM seo_reports WHERE user_id = $1 AND status = $2`, userID, status)
	}
	if err != nil {
		return 0, apperr.E(apperr.Persistence, "failed to count reports", err)
	}
	return count, nil
}

func (r *reportRepository) Update(ctx context.Context, id string, fields UpdateFields) (*model.Report, error) {
	sets := []string{}
	args := []any{}
	n := 1

	if fields.ReportTitle != nil {
		sets = append(sets, fmt.Sprintf("report_title = $%d", n))
		args = append(args, *fields.ReportTitle)
		n++
	}
	if fields.IsEmailed != nil {
		sets = append(sets, fmt.Sprintf("is_emailed = $%d", n))
		args = append(args, *fields.IsEmailed)
		n++
	}
	if fields.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", n))
		args = append(args, *fields.Status)
		n++
	}

	if len(sets) == 0 {
		return nil, ErrNoUpdateFields
	}

	current, err := r.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// No undelete: a deleted report never transitions back to active.
	if fields.Status != nil && current.Status == model.ReportStatusDeleted && *fields.Status == model.ReportStatusActive {
		return nil, ErrNoUndelete
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", n))
	args = append(args, time.Now().UTC())
	n++
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE seo_reports SET %s WHERE id = $%d`, strings.Join(sets, ", "), n)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.E(apperr.Persistence, "failed to update report", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return nil, ErrReportNotFound
	}

	return r.ByID(ctx, id)
}

func (r *reportRepository) SoftDelete(ctx context.Context, id string) error {
	status := model.ReportStatusDeleted
	_, err := r.Update(ctx, id, UpdateFields{Status: &status})
	return err
}

func (r *reportRepository) HardDelete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM seo_reports WHERE id = $1`, id)
	if err != nil {
		return apperr.E(apperr.Persistence, "failed to delete report", err)
	}
	return nil
}

// Expired returns active reports past their expiry, oldest first so the most
// overdue are processed first if a cleanup run is interrupted.
func (r *reportRepository) Expired(ctx context.Context, now time.Time) ([]*model.Report, error) {
	var reports []*model.Report
	query := `SELECT * FROM seo_reports WHERE status = $1 AND expires_at < $2 ORDER BY expires_at ASC`

	err := r.db.SelectContext(ctx, &reports, query, model.ReportStatusActive, now.UTC())
	if err != nil {
		return nil, apperr.E(apperr.Persistence, "failed to find expired reports", err)
	}
	return reports, nil
}

// ExpiringWithin returns active reports that expire inside the given window,
// soonest first.
func (r *reportRepository) ExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]*model.Report, error) {
	var reports []*model.Report
	query := `SELECT * FROM seo_reports WHERE status = $1 AND expires_at > $2 AND expires_at <= $3 ORDER BY expires_at ASC`

	err := r.db.SelectContext(ctx, &reports, query, model.ReportStatusActive, now.UTC(), now.UTC().Add(window))
	if err != nil {
		return nil, apperr.E(apperr.Persistence, "failed to find expiring reports", err)
	}
	return reports, nil
}

// PurgeDeletedBefore physically removes soft-deleted rows older than cutoff.
func (r *reportRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM seo_reports WHERE status = $1 AND updated_at < $2`, model.ReportStatusDeleted, cutoff.UTC())
	if err != nil {
		return 0, apperr.E(apperr.Persistence, "failed to purge deleted reports", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

func (r *reportRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM seo_reports WHERE status = $1`, status)
	if err != nil {
		return 0, apperr.E(apperr.Persistence, "failed to count reports", err)
	}
	return count, nil
}

func (r *reportRepository) CountExpired(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM seo_reports WHERE status = $1 AND expires_at < $2`, model.ReportStatusActive, now.UTC())
	if err != nil {
		return 0, apperr.E(apperr.Persistence, "failed to count expired reports", err)
	}
	return count, nil
}
