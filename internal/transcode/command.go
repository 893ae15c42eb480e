package transcode

import (
	"path/filepath"
	"strconv"
	"time"

	"streamer/internal/config"
)

// PlaylistName is the manifest written into every output directory.
const PlaylistName = "playlist.m3u8"

// SegmentPattern names the transport-stream segments ffmpeg writes.
const SegmentPattern = "segment_%03d.ts"

// Options holds the encode and runtime knobs for an Executor.
type Options struct {
	Binary          string
	Preset          string
	CRF             int
	GOPSize         int
	SegmentSeconds  int
	AudioBitrate    string
	Timeout         time.Duration
	MaxMessageBytes int
	// JobLogDir, when set, receives one log file per job.
	JobLogDir string
}

// OptionsFromConfig maps the transcode section onto executor options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Binary:          cfg.FFmpegBinary(),
		Preset:          cfg.Transcode.Preset,
		CRF:             cfg.Transcode.CRF,
		GOPSize:         cfg.Transcode.GOPSize,
		SegmentSeconds:  cfg.Transcode.SegmentSeconds,
		AudioBitrate:    cfg.Transcode.AudioBitrate,
		Timeout:         time.Duration(cfg.Transcode.TimeoutSeconds) * time.Second,
		MaxMessageBytes: cfg.Transcode.MaxMessageBytes,
		JobLogDir:       cfg.JobLogDir(),
	}
}

func (o Options) withDefaults() Options {
	def := config.Default().Transcode
	if o.Binary == "" {
		o.Binary = def.FFmpegBinary
	}
	if o.Preset == "" {
		o.Preset = def.Preset
	}
	if o.CRF <= 0 {
		o.CRF = def.CRF
	}
	if o.GOPSize <= 0 {
		o.GOPSize = def.GOPSize
	}
	if o.SegmentSeconds <= 0 {
		o.SegmentSeconds = def.SegmentSeconds
	}
	if o.AudioBitrate == "" {
		o.AudioBitrate = def.AudioBitrate
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = def.MaxMessageBytes
	}
	return o
}

// Args builds the ffmpeg argument list for one job. Only the stored source
// path and the output directory reach the command line; user-supplied names
// never do.
func (o Options) Args(sourcePath, outputDir string) []string {
	gop := strconv.Itoa(o.GOPSize)
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", sourcePath,
		"-c:v", "libx264",
		"-profile:v", "baseline",
		"-preset", o.Preset,
		"-crf", strconv.Itoa(o.CRF),
		"-g", gop,
		"-keyint_min", gop,
		"-sc_threshold", "0",
		"-c:a", "aac",
		"-b:a", o.AudioBitrate,
		"-f", "hls",
		"-hls_time", strconv.Itoa(o.SegmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(outputDir, SegmentPattern),
		filepath.Join(outputDir, PlaylistName),
	}
}
