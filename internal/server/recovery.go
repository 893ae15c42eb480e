package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"streamer/internal/config"
	"streamer/internal/dispatch"
	"streamer/internal/jobs"
	"streamer/internal/logging"
	"streamer/internal/transcode"
)

// RecoveryStore is the slice of the job store startup recovery needs.
type RecoveryStore interface {
	FailInterrupted(ctx context.Context, message string) (int64, error)
	ListByStatus(ctx context.Context, status jobs.Status) ([]*jobs.Job, error)
}

// Submitter accepts recovered tasks.
type Submitter interface {
	Submit(task transcode.Task) error
}

// RecoveryReport summarizes startup recovery.
type RecoveryReport struct {
	Interrupted int64
	Requeued    int
}

// Recover fails jobs a previous run left processing and resubmits queued jobs
// in creation order. It must run before workers start.
func Recover(ctx context.Context, cfg *config.Config, store RecoveryStore, queue Submitter, logger *slog.Logger) (RecoveryReport, error) {
	var report RecoveryReport

	interrupted, err := store.FailInterrupted(ctx, jobs.InterruptedMessage)
	if err != nil {
		return report, fmt.Errorf("fail interrupted jobs: %w", err)
	}
	report.Interrupted = interrupted

	queued, err := store.ListByStatus(ctx, jobs.StatusQueued)
	if err != nil {
		return report, fmt.Errorf("list queued jobs: %w", err)
	}
	for _, job := range queued {
		task := transcode.Task{JobID: job.ID, SourcePath: job.SourcePath, OutputDir: cfg.OutputDir(job.ID), Filename: job.Filename}
		if err := queue.Submit(task); err != nil {
			if errors.Is(err, dispatch.ErrAlreadyQueued) {
				continue
			}
			return report, fmt.Errorf("requeue job %s: %w", job.ID, err)
		}
		report.Requeued++
	}

	if report.Interrupted > 0 {
		logging.WarnWithContext(logger, "jobs interrupted by previous shutdown marked failed", "recovery_interrupted",
			logging.Int64("count", report.Interrupted),
			logging.String(logging.FieldImpact, "those uploads must be resubmitted"),
			logging.String(logging.FieldErrorHint, "stop the server with SIGTERM to let transcodes finish"),
		)
	}
	logger.Info("startup recovery complete",
		logging.String(logging.FieldEventType, "recovery_complete"),
		logging.Int64("interrupted", report.Interrupted),
		logging.Int("requeued", report.Requeued),
	)
	return report, nil
}
