package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leadio/leadio-server/internal/apperr"
)

// LocalBackend stores report files on the local filesystem under
// root/<userID>/ and serves them through the application's /reports/ static
// route.
type LocalBackend struct {
	root      string
	publicURL string
}

func NewLocalBackend(root, publicURL string) (*LocalBackend, error) {
	err := os.MkdirAll(root, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage directory: %w", err)
	}

	slog.Info("local report storage initialized", "dir", root)

	return &LocalBackend{
		root:      root,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (l *LocalBackend) Name() string { return "local" }

// Root returns the storage directory, used by the static file route.
func (l *LocalBackend) Root() string { return l.root }

func (l *LocalBackend) Upload(ctx context.Context, html string, meta UploadMeta) (*UploadResult, error) {
	now := time.Now()
	key := objectKey(meta, now)

	path := filepath.Join(l.root, filepath.FromSlash(key))
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, apperr.E(apperr.Storage, "local file storage failed", err)
	}

	err = os.WriteFile(path, []byte(html), 0644)
	if err != nil {
		return nil, apperr.E(apperr.Storage, "local file storage failed", err)
	}

	return &UploadResult{
		URL:       l.publicURL + "/reports/" + key,
		Key:       key,
		FileSize:  int64(len(html)),
		CreatedAt: now,
	}, nil
}

func (l *LocalBackend) Delete(ctx context.Context, keyOrURL string) (bool, error) {
	path := l.path(keyOrURL)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, apperr.E(apperr.Storage, "failed to delete report file", err)
	}
	return true, nil
}

func (l *LocalBackend) Info(ctx context.Context, keyOrURL string) (*ObjectInfo, error) {
	stat, err := os.Stat(l.path(keyOrURL))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.E(apperr.Storage, "failed to stat report file", err)
	}
	return &ObjectInfo{Size: stat.Size(), LastModified: stat.ModTime()}, nil
}

// HealthCheck verifies the storage directory is writable.
func (l *LocalBackend) HealthCheck(ctx context.Context) error {
	probe := filepath.Join(l.root, ".healthcheck")
	err := os.WriteFile(probe, []byte("ok"), 0644)
	if err != nil {
		return apperr.E(apperr.Storage, "storage directory not writable", err)
	}
	return os.Remove(probe)
}

// path resolves a key or previously issued public URL to a filesystem path.
func (l *LocalBackend) path(keyOrURL string) string {
	key := keyOrURL
	if strings.HasPrefix(keyOrURL, "http") {
		key = strings.TrimPrefix(keyOrURL, l.publicURL+"/reports/")
	}
	return filepath.Join(l.root, filepath.FromSlash(key))
}
