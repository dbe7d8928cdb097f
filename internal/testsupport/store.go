package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"shortcast/internal/config"
	"shortcast/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewVideo creates an uploaded video record for tests, backed by a real
// file inside the configured upload directory.
func NewVideo(t testing.TB, store *queue.Store, cfg *config.Config, title string) *queue.Video {
	t.Helper()

	path := filepath.Join(cfg.Paths.UploadDir, title+".mp4")
	if err := os.MkdirAll(cfg.Paths.UploadDir, 0o755); err != nil {
		t.Fatalf("mkdir upload dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("fake video bytes"), 0o644); err != nil {
		t.Fatalf("write video file: %v", err)
	}

	video, err := store.NewVideo(context.Background(), title, path)
	if err != nil {
		t.Fatalf("store.NewVideo: %v", err)
	}
	return video
}
