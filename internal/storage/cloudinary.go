package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/leadio/leadio-server/internal/apperr"
)

// CloudinaryBackend stores report files as raw assets in Cloudinary under
// <folder>/<userID>/.
type CloudinaryBackend struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// CloudinaryConfig holds configuration for the Cloudinary backend.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

func NewCloudinaryBackend(cfg CloudinaryConfig) (*CloudinaryBackend, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	slog.Info("cloudinary report storage initialized", "cloud", cfg.CloudName, "folder", cfg.Folder)

	return &CloudinaryBackend{
		cld:    cld,
		folder: strings.Trim(cfg.Folder, "/"),
	}, nil
}

func (c *CloudinaryBackend) Name() string { return "cloudinary" }

func (c *CloudinaryBackend) Upload(ctx context.Context, html string, meta UploadMeta) (*UploadResult, error) {
	now := time.Now()
	key := objectKey(meta, now)
	publicID := c.publicID(key)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.cld.Upload.Upload(ctx, strings.NewReader(html), uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: "raw",
		Overwrite:    api.Bool(true),
		Invalidate:   api.Bool(true),
		Tags:         api.CldAPIArray{"seo-report", meta.UserID},
	})
	if err != nil {
		return nil, apperr.E(apperr.Storage, "failed to upload report to cloudinary", err)
	}
	if resp.Error.Message != "" {
		return nil, apperr.Errorf(apperr.Storage, "cloudinary upload rejected: %s", resp.Error.Message)
	}

	return &UploadResult{
		URL:       resp.SecureURL,
		Key:       key,
		FileSize:  int64(resp.Bytes),
		CreatedAt: now,
	}, nil
}

func (c *CloudinaryBackend) Delete(ctx context.Context, keyOrURL string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     c.resolvePublicID(keyOrURL),
		ResourceType: "raw",
	})
	if err != nil {
		return false, apperr.E(apperr.Storage, "failed to delete report from cloudinary", err)
	}

	switch resp.Result {
	case "ok":
		return true, nil
	case "not found":
		return false, nil
	default:
		return false, apperr.Errorf(apperr.Storage, "cloudinary delete failed: %s", resp.Result)
	}
}

func (c *CloudinaryBackend) Info(ctx context.Context, keyOrURL string) (*ObjectInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	asset, err := c.cld.Admin.Asset(ctx, admin.AssetParams{
		PublicID:  c.resolvePublicID(keyOrURL),
		AssetType: api.File,
	})
	if err != nil {
		return nil, apperr.E(apperr.Storage, "failed to look up cloudinary asset", err)
	}
	if asset.Error.Message != "" {
		// Admin API reports missing assets in the response body
		return nil, nil
	}

	return &ObjectInfo{
		Size:         int64(asset.Bytes),
		LastModified: asset.CreatedAt,
	}, nil
}

func (c *CloudinaryBackend) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := c.cld.Admin.Ping(ctx)
	if err != nil {
		return apperr.E(apperr.Storage, "cloudinary unreachable", err)
	}
	if resp.Status != "ok" {
		return apperr.Errorf(apperr.Storage, "cloudinary ping returned %q", resp.Status)
	}
	return nil
}

func (c *CloudinaryBackend) publicID(key string) string {
	if c.folder == "" {
		return key
	}
	return c.folder + "/" + key
}

// resolvePublicID accepts an object key or a previously issued secure URL and
// returns the Cloudinary public ID. Raw asset URLs look like
// https://res.cloudinary.com/<cloud>/raw/upload/v123/<public_id>.
func (c *CloudinaryBackend) resolvePublicID(keyOrURL string) string {
	if !strings.HasPrefix(keyOrURL, "http") {
		return c.publicID(keyOrURL)
	}

	_, after, found := strings.Cut(keyOrURL, "/upload/")
	if !found {
		return keyOrURL
	}
	// Strip the version segment if present
	if strings.HasPrefix(after, "v") {
		_, rest, ok := strings.Cut(after, "/")
		if ok {
			return rest
		}
	}
	return after
}
