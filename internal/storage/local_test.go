package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLocalBackend(t *testing.T) *LocalBackend {
	t.Helper()
	backend, err := NewLocalBackend(t.TempDir(), "http://localhost:3001")
	if err != nil {
		t.Fatalf("NewLocalBackend() error = %v", err)
	}
	return backend
}

func TestLocalUpload(t *testing.T) {
	backend := newTestLocalBackend(t)
	ctx := context.Background()

	html := "<html><body>report</body></html>"
	result, err := backend.Upload(ctx, html, UploadMeta{
		UserID:     "user-1",
		WebsiteURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if result.FileSize != int64(len(html)) {
		t.Errorf("FileSize = %d, want %d", result.FileSize, len(html))
	}
	if !strings.HasPrefix(result.Key, "user-1/EXAMPLE-") {
		t.Errorf("Key = %q, want user-1/EXAMPLE- prefix", result.Key)
	}
	if !strings.HasSuffix(result.Key, ".html") {
		t.Errorf("Key = %q, want .html suffix", result.Key)
	}
	if result.URL != "http://localhost:3001/reports/"+result.Key {
		t.Errorf("URL = %q, want key under /reports/", result.URL)
	}

	data, err := os.ReadFile(filepath.Join(backend.Root(), filepath.FromSlash(result.Key)))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(data) != html {
		t.Errorf("stored content = %q, want %q", data, html)
	}
}

func TestLocalInfo(t *testing.T) {
	backend := newTestLocalBackend(t)
	ctx := context.Background()

	result, err := backend.Upload(ctx, "<html></html>", UploadMeta{UserID: "u", WebsiteURL: "https://example.com"})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	info, err := backend.Info(ctx, result.Key)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info == nil {
		t.Fatal("Info() = nil for existing object")
	}
	if info.Size != result.FileSize {
		t.Errorf("Info().Size = %d, want %d", info.Size, result.FileSize)
	}

	missing, err := backend.Info(ctx, "u/NOPE-20250101-0000.html")
	if err != nil {
		t.Fatalf("Info() missing object error = %v", err)
	}
	if missing != nil {
		t.Errorf("Info() = %+v for missing object, want nil", missing)
	}
}

func TestLocalDeleteIdempotent(t *testing.T) {
	backend := newTestLocalBackend(t)
	ctx := context.Background()

	result, err := backend.Upload(ctx, "<html></html>", UploadMeta{UserID: "u", WebsiteURL: "https://example.com"})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	deleted, err := backend.Delete(ctx, result.Key)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !deleted {
		t.Error("Delete() = false on first delete, want true")
	}

	deleted, err = backend.Delete(ctx, result.Key)
	if err != nil {
		t.Fatalf("Delete() second call error = %v", err)
	}
	if deleted {
		t.Error("Delete() = true on second delete, want false")
	}
}

func TestLocalDeleteByURL(t *testing.T) {
	backend := newTestLocalBackend(t)
	ctx := context.Background()

	result, err := backend.Upload(ctx, "<html></html>", UploadMeta{UserID: "u", WebsiteURL: "https://example.com"})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	deleted, err := backend.Delete(ctx, result.URL)
	if err != nil {
		t.Fatalf("Delete() by URL error = %v", err)
	}
	if !deleted {
		t.Error("Delete() by URL = false, want true")
	}
}

func TestLocalHealthCheck(t *testing.T) {
	backend := newTestLocalBackend(t)

	err := backend.HealthCheck(context.Background())
	if err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	entries, err := os.ReadDir(backend.Root())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() == ".healthcheck" {
			t.Error("health probe file left behind")
		}
	}
}
