package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"streamer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.MediaDir = filepath.Join(base, "media")
	cfgVal.Paths.OriginalDir = filepath.Join(base, "media", "original")
	cfgVal.Paths.HLSDir = filepath.Join(base, "media", "hls")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return builder.cfg
}

// WithWorkers sets the transcode worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcode.Workers = n
	}
}

// WithMaxPending sets the ingest back-pressure limit.
func WithMaxPending(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.MaxPending = n
	}
}

// WithStubbedFFmpeg writes an ffmpeg stand-in that runs script (a POSIX sh
// body) and points the config at it. The stub receives ffmpeg's arguments, so
// "$@" and the last argument (the playlist path) are available to the script.
func WithStubbedFFmpeg(script string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ffmpeg")
		body := "#!/bin/sh\n" + script + "\n"
		if err := os.WriteFile(target, []byte(body), 0o755); err != nil {
			b.t.Fatalf("write ffmpeg stub: %v", err)
		}
		b.cfg.Transcode.FFmpegBinary = target
	}
}

// SuccessfulFFmpeg writes a playlist and one segment next to the final argument.
const SuccessfulFFmpeg = `for last; do :; done
out=$(dirname "$last")
printf 'seg' > "$out/segment_000.ts"
printf '#EXTM3U\n#EXT-X-ENDLIST\n' > "$last"
exit 0`

// FailingFFmpeg mimics ffmpeg rejecting an input file.
const FailingFFmpeg = `echo "Invalid data found when processing input" >&2
exit 1`

// WithStubbedBinaries writes no-op executables for the provided names and
// prepends them to PATH.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "pathbin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
