package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"streamer/internal/jobs"
	"streamer/internal/logging"
	"streamer/internal/notifications"
	"streamer/internal/services"
)

// finalizeTimeout bounds the terminal status write, which runs even after the
// job context is canceled.
const finalizeTimeout = 10 * time.Second

// Task identifies one unit of transcode work.
type Task struct {
	JobID      string
	SourcePath string
	OutputDir  string
	// Filename is the sanitized display name, used only in notifications.
	Filename string
}

// StatusWriter is the slice of the job store the executor needs.
type StatusWriter interface {
	Transition(ctx context.Context, id string, from, to jobs.Status, message string) error
}

// Notifier receives job outcomes after they are recorded.
type Notifier interface {
	Publish(ctx context.Context, event notifications.Event, payload notifications.Payload) error
}

// Option configures the executor.
type Option func(*Executor)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(r Runner) Option {
	return func(e *Executor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithNotifier publishes ready and failed outcomes to n.
func WithNotifier(n Notifier) Option {
	return func(e *Executor) {
		if n != nil {
			e.notifier = n
		}
	}
}

// Executor runs one task at a time per call; concurrency is the caller's concern.
type Executor struct {
	store    StatusWriter
	runner   Runner
	notifier Notifier
	opts     Options
	logger   *slog.Logger
}

// NewExecutor constructs an executor writing statuses to store.
func NewExecutor(store StatusWriter, opts Options, logger *slog.Logger, options ...Option) *Executor {
	e := &Executor{
		store:  store,
		runner: ExecRunner{},
		opts:   opts.withDefaults(),
		logger: logging.NewComponentLogger(logger, "executor"),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Execute transcodes task and records exactly one terminal status. A nil
// return means the job is ready. If the job cannot be claimed (unknown id or
// no longer queued) it is left untouched and the claim error is returned.
func (e *Executor) Execute(ctx context.Context, task Task) (err error) {
	ctx = services.WithJobID(ctx, task.JobID)
	logger, closeLog, logErr := logging.NewJobLogger(logging.WithContext(ctx, e.logger), e.opts.JobLogDir, task.JobID)
	if logErr != nil {
		logging.WarnWithContext(logger, "job log unavailable", "job_log_unavailable",
			logging.Error(logErr),
			logging.String(logging.FieldImpact, "transcode details only appear in the server log"),
			logging.String(logging.FieldErrorHint, "check log_dir permissions"),
		)
	}
	defer func() { _ = closeLog() }()

	if err := e.store.Transition(ctx, task.JobID, jobs.StatusQueued, jobs.StatusProcessing, jobs.StartedMessage); err != nil {
		logging.ErrorWithContext(logger, "job claim failed", "job_claim_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "job was removed or already picked up"),
		)
		return fmt.Errorf("claim job %s: %w", task.JobID, err)
	}

	started := time.Now()
	logger.Info("transcode started",
		logging.String(logging.FieldEventType, "transcode_started"),
		logging.String("source", task.SourcePath),
		logging.String("output_dir", task.OutputDir),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("transcode panicked",
				logging.String(logging.FieldEventType, "transcode_panic"),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			message := truncateUTF8(fmt.Sprintf("unexpected fault: %v", r), e.opts.MaxMessageBytes)
			err = e.finish(ctx, logger, task, jobs.StatusFailed, message, services.ErrInternal, started)
			if err == nil {
				err = fault(services.ErrInternal, "", message, nil)
			}
		}
	}()

	runErr := e.run(ctx, logger, task)
	if runErr == nil {
		return e.finish(ctx, logger, task, jobs.StatusReady, "", nil, started)
	}

	message := e.failureText(runErr)
	if finishErr := e.finish(ctx, logger, task, jobs.StatusFailed, message, runErr, started); finishErr != nil {
		return errors.Join(runErr, finishErr)
	}
	return runErr
}

func (e *Executor) run(ctx context.Context, logger *slog.Logger, task Task) error {
	if err := os.MkdirAll(task.OutputDir, 0o755); err != nil {
		return fault(services.ErrConfiguration, "create output directory", "", err)
	}

	runCtx := ctx
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	args := e.opts.Args(task.SourcePath, task.OutputDir)
	logger.Debug("ffmpeg command", logging.String("binary", e.opts.Binary), logging.Any("args", args))

	result, err := e.runner.Run(runCtx, e.opts.Binary, args)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return fault(services.ErrTimeout, "", fmt.Sprintf("transcode timed out after %s", e.opts.Timeout), nil)
	case ctx.Err() != nil:
		return fault(services.ErrCanceled, "", "transcode canceled during shutdown", nil)
	default:
		return fault(services.ErrExternalTool, "", "failed to start ffmpeg", err)
	}

	if result.Stderr != "" {
		logger.Debug("ffmpeg stderr", logging.String("stderr", result.Stderr))
	}
	if result.ExitCode != 0 {
		return &FailureError{ExitCode: result.ExitCode, Diagnostic: result.Stderr}
	}
	if _, statErr := os.Stat(filepath.Join(task.OutputDir, PlaylistName)); statErr != nil {
		logging.WarnWithContext(logger, "ffmpeg succeeded but playlist is missing", "playlist_missing",
			logging.Error(statErr),
			logging.String(logging.FieldImpact, "playback may fail for this job"),
			logging.String(logging.FieldErrorHint, "check ffmpeg output options and hls_dir permissions"),
		)
	}
	return nil
}

// failureText converts a run error into the message stored on the job.
func (e *Executor) failureText(err error) string {
	var failure *FailureError
	if errors.As(err, &failure) {
		return failureMessage(failure.Diagnostic, failure.ExitCode, e.opts.MaxMessageBytes)
	}
	return truncateUTF8(services.Detail(err), e.opts.MaxMessageBytes)
}

func (e *Executor) finish(ctx context.Context, logger *slog.Logger, task Task, status jobs.Status, message string, cause error, started time.Time) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if err := e.store.Transition(writeCtx, task.JobID, jobs.StatusProcessing, status, message); err != nil {
		logging.ErrorWithContext(logger, "terminal status write failed", "status_write_failed",
			logging.String(logging.FieldStatus, string(status)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database health; job remains processing until restart"),
		)
		return fmt.Errorf("record %s for job %s: %w", status, task.JobID, err)
	}

	elapsed := time.Since(started).Round(time.Millisecond)
	event := notifications.EventJobReady
	if status == jobs.StatusReady {
		logger.Info("transcode finished",
			logging.String(logging.FieldEventType, "transcode_ready"),
			logging.Duration("duration", elapsed),
		)
	} else {
		event = notifications.EventJobFailed
		kind := services.Kind(cause)
		if kind == "" && errors.Is(cause, ErrTranscodeFailed) {
			kind = "transcode"
		}
		logging.ErrorWithContext(logger, "transcode failed", "transcode_failed",
			logging.String("message", message),
			logging.String("error_kind", kind),
			logging.Duration("duration", elapsed),
			logging.String(logging.FieldErrorHint, "inspect the job log and the uploaded file"),
		)
	}
	e.notify(writeCtx, logger, event, notifications.Payload{JobID: task.JobID, Filename: task.Filename, Message: message})
	return nil
}

func (e *Executor) notify(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job status is unaffected"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}
