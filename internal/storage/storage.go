package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/leadio/leadio-server/internal/config"
)

// UploadMeta carries the report attributes a backend needs to place a file.
type UploadMeta struct {
	UserID      string
	WebsiteURL  string
	ReportTitle string
}

// UploadResult describes a stored report object.
type UploadResult struct {
	URL       string
	Key       string
	FileSize  int64
	CreatedAt time.Time
}

// ObjectInfo describes an existing stored object.
type ObjectInfo struct {
	Size         int64
	LastModified time.Time
}

// Backend is the storage abstraction for report HTML bodies. All variants are
// interchangeable; callers never branch on which one is active.
type Backend interface {
	// Upload stores the HTML document and returns its key and public URL.
	Upload(ctx context.Context, html string, meta UploadMeta) (*UploadResult, error)

	// Delete removes an object by key or URL. Deleting a missing object is
	// not an error: it returns (false, nil) to tolerate double-cleanup races.
	Delete(ctx context.Context, keyOrURL string) (bool, error)

	// Info returns object metadata, or (nil, nil) when the object is missing.
	Info(ctx context.Context, keyOrURL string) (*ObjectInfo, error)

	// HealthCheck probes the backend. Never called on the hot path.
	HealthCheck(ctx context.Context) error

	// Name identifies the backend variant in logs and health output.
	Name() string
}

// New selects the configured backend. The choice is made once at process
// start; adding a variant means implementing Backend, not extending a switch
// at call sites.
func New(cfg *config.Config) (Backend, error) {
	switch cfg.StorageType {
	case "s3", "zeabur":
		return NewS3Backend(S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
			CDNURL:    cfg.S3CDNURL,
		})
	case "cloudinary":
		return NewCloudinaryBackend(CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		})
	case "local":
		return NewLocalBackend(cfg.StoragePath, cfg.PublicURL)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.StorageType)
	}
}

// SiteName derives the uppercased site label used in report filenames:
// the hostname of websiteURL with a leading "www." stripped, first label
// only. Purely cosmetic; any parse failure falls back to "WEBSITE" and must
// never fail an upload.
func SiteName(websiteURL string) string {
	u, err := url.Parse(websiteURL)
	if err != nil || u.Hostname() == "" {
		return "WEBSITE"
	}
	hostname := strings.TrimPrefix(u.Hostname(), "www.")
	label, _, _ := strings.Cut(hostname, ".")
	if label == "" {
		return "WEBSITE"
	}
	return strings.ToUpper(label)
}

// objectKey builds the per-user object key, e.g. "u1/EXAMPLE-20250721-1319.html".
func objectKey(meta UploadMeta, now time.Time) string {
	return fmt.Sprintf("%s/%s-%s.html", meta.UserID, SiteName(meta.WebsiteURL), now.UTC().Format("20060102-1504"))
}
