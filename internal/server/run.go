package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"streamer/internal/config"
	"streamer/internal/deps"
	"streamer/internal/dispatch"
	"streamer/internal/httpapi"
	"streamer/internal/ingest"
	"streamer/internal/jobs"
	"streamer/internal/logging"
	"streamer/internal/notifications"
	"streamer/internal/preflight"
	"streamer/internal/staging"
	"streamer/internal/status"
	"streamer/internal/transcode"
)

// httpShutdownTimeout bounds how long open requests may run after the
// listener closes.
const httpShutdownTimeout = 10 * time.Second

// Options configures server runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
	// Logger replaces the config-driven logger (tests).
	Logger *slog.Logger
	// Listener replaces listening on server.bind (tests).
	Listener net.Listener
	// OnReady is called with the bound address once uploads are accepted.
	OnReady func(addr string)
}

// ErrAlreadyRunning is returned when another server holds the state lock.
var ErrAlreadyRunning = errors.New("another streamer server is already running")

// Run starts the server and blocks until ctx is canceled or SIGINT/SIGTERM
// arrives, then shuts down in order.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	ctx, stopSignals := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger := opts.Logger
	if logger == nil {
		logCfg := *cfg
		if opts.LogLevel != "" {
			logCfg.Logging.Level = opts.LogLevel
		}
		var err error
		if logger, err = logging.NewFromConfig(&logCfg); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release server lock", logging.Error(err))
		}
	}()

	logDependencySnapshot(ctx, logger, cfg)
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "uploads or transcodes may fail"),
			logging.String(logging.FieldErrorHint, "run `streamer check` for details"),
		)
	}
	if removed := logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.JobLogDir(), Pattern: "*.log"},
	); removed > 0 {
		logger.Info("pruned old job logs", logging.Int("removed", removed))
	}
	// Holding the lock means no upload is in progress, so every partial file is orphaned.
	staging.CleanPartialUploads(ctx, cfg.Paths.OriginalDir, 0, logger)

	store, err := jobs.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open job store", "store_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check store.driver and store.dsn"),
		)
		return err
	}
	defer store.Close()

	executor := transcode.NewExecutor(store, transcode.OptionsFromConfig(cfg), logger,
		transcode.WithNotifier(notifications.NewService(cfg)),
	)
	dispatcher := dispatch.New(executor, dispatch.Options{Workers: cfg.Transcode.Workers, Logger: logger})

	if _, err := Recover(ctx, cfg, store, dispatcher, logger); err != nil {
		return err
	}
	// Workers outlive the signal; Stop decides when in-flight work is canceled.
	if err := dispatcher.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	defer func() {
		_ = dispatcher.Stop(context.Background())
	}()

	api := httpapi.New(cfg,
		ingest.NewService(cfg, store, dispatcher, logger),
		status.NewService(store),
		dispatcher,
		logger,
	)
	srv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Read and write deadlines stay unset: multi-gigabyte uploads stream
		// for as long as the client keeps sending.
	}

	listener := opts.Listener
	if listener == nil {
		if listener, err = net.Listen("tcp", cfg.Server.Bind); err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Server.Bind, err)
		}
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	addr := listener.Addr().String()
	logger.Info("streamer server listening",
		logging.String(logging.FieldEventType, "server_started"),
		logging.String("address", addr),
		logging.String("store", store.Location()),
		logging.Int("workers", dispatcher.Workers()),
		logging.Bool("serve_hls", cfg.Server.ServeHLS),
	)
	if opts.OnReady != nil {
		opts.OnReady(addr)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("streamer server shutting down", logging.String(logging.FieldEventType, "server_stopping"))
	case err, ok := <-serveErr:
		if ok && err != nil {
			logging.ErrorWithContext(logger, "http server failed", "server_failed", logging.Error(err))
			runErr = fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", logging.Error(err))
	}
	cancel()

	grace := time.Duration(cfg.Server.ShutdownGraceSeconds) * time.Second
	graceCtx, cancelGrace := context.WithTimeout(context.Background(), grace)
	defer cancelGrace()
	if err := dispatcher.Stop(graceCtx); err != nil {
		logging.WarnWithContext(logger, "in-flight transcodes canceled at shutdown", "shutdown_forced",
			logging.Error(err),
			logging.Duration("grace", grace),
			logging.String(logging.FieldImpact, "those jobs are marked failed"),
			logging.String(logging.FieldErrorHint, "raise server.shutdown_grace_seconds"),
		)
	}
	logger.Info("streamer server stopped", logging.String(logging.FieldEventType, "server_stopped"))
	return runErr
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	ffmpeg := deps.ProbeFFmpeg(ctx, cfg.FFmpegBinary())
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ffmpeg_available", ffmpeg.Available()),
		logging.String("ffmpeg_binary", ffmpeg.Command),
		logging.String("ffmpeg_version", ffmpeg.Version),
		logging.String("store_driver", cfg.Store.Driver),
		logging.Int("workers", cfg.Transcode.Workers),
		logging.Int("timeout_seconds", cfg.Transcode.TimeoutSeconds),
		logging.Bool("notifications", cfg.Notifications.NtfyTopic != ""),
	)
}
