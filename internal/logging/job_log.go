package logging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// JobLogPath returns the per-job transcode log location inside dir.
func JobLogPath(dir, jobID string) string {
	return filepath.Join(dir, jobID+".log")
}

// NewJobLogger tees base into a JSON log file dedicated to one job so a failed
// transcode can be inspected without grepping the server log. The returned
// close func must be called once the job finishes. An empty dir returns base
// unchanged.
func NewJobLogger(base *slog.Logger, dir, jobID string) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }
	if base == nil {
		base = NewNop()
	}
	if strings.TrimSpace(dir) == "" || strings.TrimSpace(jobID) == "" {
		return base, noop, nil
	}
	file, err := openLogFile(JobLogPath(dir, jobID))
	if err != nil {
		return base, noop, fmt.Errorf("open job log: %w", err)
	}
	handler := newJSONHandler(file, slog.LevelDebug, false)
	return teeLogger(base, handler), file.Close, nil
}
