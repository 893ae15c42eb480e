package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	MediaDir    string `toml:"media_dir"`
	OriginalDir string `toml:"original_dir"`
	HLSDir      string `toml:"hls_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
}

// Server contains HTTP listener configuration.
type Server struct {
	Bind                 string   `toml:"bind"`
	ServeHLS             bool     `toml:"serve_hls"`
	HLSURLPrefix         string   `toml:"hls_url_prefix"`
	AllowedOrigins       []string `toml:"allowed_origins"`
	ShutdownGraceSeconds int      `toml:"shutdown_grace_seconds"`
}

// Store selects the job store backend.
type Store struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Upload contains ingest limits.
type Upload struct {
	MaxBytes          int64    `toml:"max_bytes"`
	AllowedExtensions []string `toml:"allowed_extensions"`
	MaxPending        int      `toml:"max_pending"`
}

// Transcode contains ffmpeg and worker settings.
type Transcode struct {
	FFmpegBinary    string `toml:"ffmpeg_binary"`
	Workers         int    `toml:"workers"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	SegmentSeconds  int    `toml:"segment_seconds"`
	Preset          string `toml:"preset"`
	CRF             int    `toml:"crf"`
	GOPSize         int    `toml:"gop_size"`
	AudioBitrate    string `toml:"audio_bitrate"`
	MaxMessageBytes int    `toml:"max_message_bytes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains ntfy settings. An empty topic disables delivery.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Config encapsulates all configuration values for streamer.
//
// Configuration sections by subsystem:
//   - Paths: upload, HLS output, state, and log directories
//   - Server: HTTP bind address, CORS, and optional HLS file serving
//   - Store: job store driver (sqlite or mysql)
//   - Upload: size limit, extension allow-list, and back-pressure
//   - Transcode: ffmpeg binary, worker count, timeout, and encode knobs
//   - Logging: log format, level, and retention
//   - Notifications: optional ntfy pushes when jobs finish
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Store         Store         `toml:"store"`
	Upload        Upload        `toml:"upload"`
	Transcode     Transcode     `toml:"transcode"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("streamer.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for server operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OriginalDir, c.Paths.HLSDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite job database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "media.db")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "streamer.lock")
}

// JobLogDir returns the directory holding per-job transcode logs.
func (c *Config) JobLogDir() string {
	return filepath.Join(c.Paths.LogDir, "jobs")
}

// FFmpegBinary returns the configured ffmpeg executable.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Transcode.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// OutputRef builds the public playlist reference for a job id.
func (c *Config) OutputRef(id string) string {
	return strings.TrimRight(c.Server.HLSURLPrefix, "/") + "/" + id + "/playlist.m3u8"
}

// OutputDir returns the HLS output directory for a job id.
func (c *Config) OutputDir(id string) string {
	return filepath.Join(c.Paths.HLSDir, id)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
