package config

const (
	defaultConfigPath           = "~/.config/streamer/config.toml"
	defaultMediaDir             = "~/.local/share/streamer/media"
	defaultStateDir             = "~/.local/share/streamer"
	defaultLogDir               = "~/.local/share/streamer/logs"
	defaultBind                 = "127.0.0.1:8080"
	defaultHLSURLPrefix         = "/hls"
	defaultShutdownGraceSeconds = 30
	defaultStoreDriver          = DriverSQLite
	defaultUploadMaxBytes       = 4 << 30
	defaultUploadMaxPending     = 256
	defaultFFmpegBinary         = "ffmpeg"
	defaultTranscodeWorkers     = 1
	defaultTranscodeTimeout     = 4 * 60 * 60
	defaultSegmentSeconds       = 6
	defaultPreset               = "veryfast"
	defaultCRF                  = 23
	defaultGOPSize              = 48
	defaultAudioBitrate         = "128k"
	defaultMaxMessageBytes      = 400
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultNtfyTimeoutSeconds   = 10

	// MySQLDSNEnv overrides store.dsn when the config leaves it empty.
	MySQLDSNEnv = "STREAMER_MYSQL_DSN"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaDir: defaultMediaDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Server: Server{
			Bind:                 defaultBind,
			HLSURLPrefix:         defaultHLSURLPrefix,
			ShutdownGraceSeconds: defaultShutdownGraceSeconds,
		},
		Store: Store{
			Driver: defaultStoreDriver,
		},
		Upload: Upload{
			MaxBytes:          defaultUploadMaxBytes,
			AllowedExtensions: []string{".mp4", ".mkv"},
			MaxPending:        defaultUploadMaxPending,
		},
		Transcode: Transcode{
			FFmpegBinary:    defaultFFmpegBinary,
			Workers:         defaultTranscodeWorkers,
			TimeoutSeconds:  defaultTranscodeTimeout,
			SegmentSeconds:  defaultSegmentSeconds,
			Preset:          defaultPreset,
			CRF:             defaultCRF,
			GOPSize:         defaultGOPSize,
			AudioBitrate:    defaultAudioBitrate,
			MaxMessageBytes: defaultMaxMessageBytes,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
	}
}
