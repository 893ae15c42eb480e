package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind %q: %w", c.Server.Bind, err)
	}
	if c.Server.ShutdownGraceSeconds < 0 {
		return errors.New("server.shutdown_grace_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite:
		return nil
	case DriverMySQL:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the mysql driver. Set %s or edit the config file", MySQLDSNEnv)
		}
		return nil
	default:
		return fmt.Errorf("store.driver: unsupported value %q (want sqlite or mysql)", c.Store.Driver)
	}
}

func (c *Config) validateUpload() error {
	if c.Upload.MaxBytes <= 0 {
		return errors.New("upload.max_bytes must be positive")
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return errors.New("upload.allowed_extensions must list at least one extension")
	}
	if c.Upload.MaxPending < 0 {
		return errors.New("upload.max_pending must not be negative")
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if c.Transcode.Workers <= 0 {
		return errors.New("transcode.workers must be positive")
	}
	if c.Transcode.TimeoutSeconds < 0 {
		return errors.New("transcode.timeout_seconds must not be negative")
	}
	if c.Transcode.SegmentSeconds <= 0 {
		return errors.New("transcode.segment_seconds must be positive")
	}
	if c.Transcode.CRF < 0 || c.Transcode.CRF > 51 {
		return errors.New("transcode.crf must be between 0 and 51")
	}
	if c.Transcode.GOPSize <= 0 {
		return errors.New("transcode.gop_size must be positive")
	}
	if c.Transcode.MaxMessageBytes <= 0 {
		return errors.New("transcode.max_message_bytes must be positive")
	}
	if strings.ContainsAny(c.Transcode.Preset, " \t") {
		return fmt.Errorf("transcode.preset %q must be a single word", c.Transcode.Preset)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeoutSeconds < 0 {
		return errors.New("notifications.request_timeout_seconds must not be negative")
	}
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic %q: must be a full http(s) URL", topic)
	}
	return nil
}
