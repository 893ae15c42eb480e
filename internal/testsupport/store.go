package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"streamer/internal/config"
	"streamer/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob inserts a queued job whose source and output paths follow the
// config's layout.
func NewJob(t testing.TB, store *jobs.Store, cfg *config.Config, id, filename string) *jobs.Job {
	t.Helper()

	job := &jobs.Job{
		ID:         id,
		Filename:   filename,
		SourcePath: filepath.Join(cfg.Paths.OriginalDir, id+filepath.Ext(filename)),
		OutputRef:  cfg.OutputRef(id),
		Status:     jobs.StatusQueued,
	}
	if err := store.Insert(context.Background(), job); err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return job
}
