package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"streamer/internal/logging"
)

func writeFile(t *testing.T, path string, data string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if age > 0 {
		stamp := time.Now().Add(-age)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}
}

func TestCleanPartialUploadsInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanPartialUploads(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanPartialUploadsRemovesOnlyOldPartials(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, ".abc.mp4.123.part")
	writeFile(t, old, "12345", 2*time.Hour)
	recent := filepath.Join(dir, ".def.mkv.456.part")
	writeFile(t, recent, "x", 0)
	finished := filepath.Join(dir, "abc.mp4")
	writeFile(t, finished, "video", 2*time.Hour)
	visible := filepath.Join(dir, "notes.part")
	writeFile(t, visible, "keep", 2*time.Hour)

	result := CleanPartialUploads(context.Background(), dir, time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != old {
		t.Fatalf("expected only %s removed, got %v", old, result.Removed)
	}
	if result.Bytes != 5 {
		t.Fatalf("expected 5 bytes reclaimed, got %d", result.Bytes)
	}
	for _, kept := range []string{recent, finished, visible} {
		if _, err := os.Stat(kept); err != nil {
			t.Fatalf("%s should still exist: %v", kept, err)
		}
	}
}

func TestCleanPartialUploadsZeroAgeRemovesAll(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, ".a.mp4.1.part")
	b := filepath.Join(dir, ".b.mp4.2.part")
	writeFile(t, a, "a", 0)
	writeFile(t, b, "b", 0)
	if err := os.Mkdir(filepath.Join(dir, ".dir.part"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	result := CleanPartialUploads(context.Background(), dir, 0, logging.NewNop())
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removed, got %v", result.Removed)
	}
	if _, err := os.Stat(filepath.Join(dir, ".dir.part")); err != nil {
		t.Fatalf("directories must be left alone: %v", err)
	}
}
