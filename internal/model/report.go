package model

import (
	"math"
	"time"
)

const (
	ReportStatusActive  = "active"
	ReportStatusDeleted = "deleted"
	// ReportStatusExpired is reserved in the schema but never written;
	// expiry is computed from expires_at, not stored as a third status.
	ReportStatusExpired = "expired"
)

type Report struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	ReportURL   string    `db:"report_url"`
	StorageKey  *string   `db:"storage_key"` // backend object key; nil for legacy rows
	ReportTitle string    `db:"report_title"`
	WebsiteURL  string    `db:"website_url"`
	FileSize    *int64    `db:"file_size"`
	IsEmailed   bool      `db:"is_emailed"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}

// ReportJSON is the API response shape for a report.
type ReportJSON struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	ReportURL       string    `json:"reportUrl"`
	ReportTitle     string    `json:"reportTitle"`
	WebsiteURL      string    `json:"websiteUrl"`
	FileSize        *int64    `json:"fileSize"`
	IsEmailed       bool      `json:"isEmailed"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
	DaysUntilExpiry int       `json:"daysUntilExpiry"`
}

func (r *Report) JSON() ReportJSON {
	return ReportJSON{
		ID:              r.ID,
		UserID:          r.UserID,
		ReportURL:       r.ReportURL,
		ReportTitle:     r.ReportTitle,
		WebsiteURL:      r.WebsiteURL,
		FileSize:        r.FileSize,
		IsEmailed:       r.IsEmailed,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		ExpiresAt:       r.ExpiresAt,
		DaysUntilExpiry: r.DaysUntilExpiry(time.Now()),
	}
}

// DaysUntilExpiry returns the whole days remaining until expiry, rounded up.
// Expired reports return 0 or negative values.
func (r *Report) DaysUntilExpiry(now time.Time) int {
	return int(math.Ceil(r.ExpiresAt.Sub(now).Hours() / 24))
}

func (r *Report) IsExpired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}
