// Package config loads, normalizes, and validates streamer configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// STREAMER_MYSQL_DSN. The Config type centralizes every knob the server and
// CLI need, so upload, HLS output, and state directories are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
