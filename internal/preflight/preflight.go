package preflight

import (
	"context"

	"streamer/internal/config"
	"streamer/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// MinFreeBytes is the free space below which the media volume is flagged.
const MinFreeBytes = 2 << 30

// RunAll executes every preflight check for cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Original directory", cfg.Paths.OriginalDir),
		CheckDirectoryAccess("HLS directory", cfg.Paths.HLSDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Media volume", cfg.Paths.MediaDir, MinFreeBytes),
	}
	results = append(results, CheckFFmpeg(ctx, cfg.FFmpegBinary()))
	return results
}

// Failed filters results down to failures.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// CheckSystemDeps resolves the external binaries for cfg without running them.
func CheckSystemDeps(cfg *config.Config) []deps.Binary {
	return []deps.Binary{deps.Lookup("FFmpeg", cfg.FFmpegBinary())}
}
