// Package logging assembles structured slog loggers and formatting helpers used
// across streamer.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so request and transcode code
// can tag log lines with job IDs and correlation IDs. Per-job log files and
// retention pruning live here too, along with a no-op logger for tests.
package logging
