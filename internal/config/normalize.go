package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeStore()
	c.normalizeUpload()
	c.normalizeTranscode()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		c.Paths.MediaDir = defaultMediaDir
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OriginalDir) == "" {
		c.Paths.OriginalDir = filepath.Join(c.Paths.MediaDir, "original")
	}
	if c.Paths.OriginalDir, err = expandPath(c.Paths.OriginalDir); err != nil {
		return fmt.Errorf("paths.original_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HLSDir) == "" {
		c.Paths.HLSDir = filepath.Join(c.Paths.MediaDir, "hls")
	}
	if c.Paths.HLSDir, err = expandPath(c.Paths.HLSDir); err != nil {
		return fmt.Errorf("paths.hls_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	prefix := strings.TrimSpace(c.Server.HLSURLPrefix)
	if prefix == "" {
		prefix = defaultHLSURLPrefix
	}
	if !strings.HasPrefix(prefix, "/") && !strings.Contains(prefix, "://") {
		prefix = "/" + prefix
	}
	c.Server.HLSURLPrefix = strings.TrimRight(prefix, "/")
	origins := make([]string, 0, len(c.Server.AllowedOrigins))
	for _, origin := range c.Server.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.Server.AllowedOrigins = origins
	if c.Server.ShutdownGraceSeconds == 0 {
		c.Server.ShutdownGraceSeconds = defaultShutdownGraceSeconds
	}
}

func (c *Config) normalizeStore() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" && c.Store.Driver == DriverMySQL {
		if value, ok := os.LookupEnv(MySQLDSNEnv); ok {
			c.Store.DSN = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeUpload() {
	exts := make([]string, 0, len(c.Upload.AllowedExtensions))
	seen := make(map[string]struct{}, len(c.Upload.AllowedExtensions))
	for _, ext := range c.Upload.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	c.Upload.AllowedExtensions = exts
}

func (c *Config) normalizeTranscode() {
	c.Transcode.FFmpegBinary = strings.TrimSpace(c.Transcode.FFmpegBinary)
	if c.Transcode.FFmpegBinary == "" {
		c.Transcode.FFmpegBinary = defaultFFmpegBinary
	}
	c.Transcode.Preset = strings.TrimSpace(c.Transcode.Preset)
	if c.Transcode.Preset == "" {
		c.Transcode.Preset = defaultPreset
	}
	c.Transcode.AudioBitrate = strings.TrimSpace(c.Transcode.AudioBitrate)
	if c.Transcode.AudioBitrate == "" {
		c.Transcode.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds == 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}
