package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"streamer/internal/fileutil"
	"streamer/internal/logging"
)

// CleanupResult contains the outcome of a cleanup pass.
type CleanupResult struct {
	Removed []string
	Bytes   int64
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanPartialUploads removes hidden SaveStream temp files in dir that are
// older than maxAge. A maxAge of zero removes every partial file, which is
// only safe while no upload can be in progress.
func CleanPartialUploads(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger) CleanupResult {
	result := CleanupResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !isPartial(entry) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if maxAge > 0 && !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if logger != nil {
				logging.WarnWithContext(logger, "failed to remove partial upload", "upload_cleanup_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check original_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, path)
		result.Bytes += info.Size()
		if logger != nil {
			logger.Info("removed partial upload",
				logging.String("path", path),
				logging.Int64("bytes", info.Size()),
				logging.Duration("age", time.Since(info.ModTime()).Round(time.Second)),
				logging.String(logging.FieldEventType, "upload_cleanup"),
			)
		}
	}

	return result
}

func isPartial(entry os.DirEntry) bool {
	name := entry.Name()
	return entry.Type().IsRegular() && strings.HasPrefix(name, ".") && strings.HasSuffix(name, fileutil.PartialSuffix)
}
