package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"streamer/internal/config"
	"streamer/internal/fileutil"
	"streamer/internal/jobs"
	"streamer/internal/logging"
	"streamer/internal/services"
	"streamer/internal/textutil"
	"streamer/internal/transcode"
)

// Upload is one incoming file. Size is the declared length, or -1 when the
// client did not send one.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// Store is the slice of the job store ingest writes to.
type Store interface {
	Insert(ctx context.Context, job *jobs.Job) error
	UpdateStatus(ctx context.Context, id string, status jobs.Status, message string) error
}

// Queue accepts tasks for background execution.
type Queue interface {
	Submit(task transcode.Task) error
	Pending() int
}

// Service accepts uploads.
type Service struct {
	cfg    *config.Config
	store  Store
	queue  Queue
	logger *slog.Logger
	newID  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator replaces the job id source (tests).
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService constructs an ingest service.
func NewService(cfg *config.Config, store Store, queue Queue, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		store:  store,
		queue:  queue,
		logger: logging.NewComponentLogger(logger, "ingest"),
		newID:  NewJobID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewJobID returns a random 32-character hex id.
func NewJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Accept validates and stores up, records a queued job, and submits it. The
// returned job is the row as inserted. Nothing is written to the store when
// validation, size or back-pressure checks fail.
func (s *Service) Accept(ctx context.Context, up Upload) (*jobs.Job, error) {
	if strings.TrimSpace(up.Filename) == "" {
		return nil, invalid("no selected file")
	}
	if up.Body == nil {
		return nil, invalid("no file part")
	}
	filename := textutil.SecureFilename(up.Filename)
	ext := textutil.Extension(filename)
	if filename == "" || !slices.Contains(s.cfg.Upload.AllowedExtensions, ext) {
		return nil, invalid("file type not allowed")
	}
	limit := s.cfg.Upload.MaxBytes
	if limit > 0 && up.Size > limit {
		return nil, ErrTooLarge
	}
	if maxPending := s.cfg.Upload.MaxPending; maxPending > 0 && s.queue.Pending() >= maxPending {
		logging.WarnWithContext(s.logger, "upload refused; transcode backlog full", "ingest_busy",
			logging.Int("pending", s.queue.Pending()),
			logging.Int("max_pending", maxPending),
			logging.String(logging.FieldImpact, "client must retry later"),
			logging.String(logging.FieldErrorHint, "raise upload.max_pending or transcode.workers"),
		)
		return nil, ErrBusy
	}

	id := s.newID()
	ctx = services.WithJobID(ctx, id)
	logger := logging.WithContext(ctx, s.logger)

	sourcePath := filepath.Join(s.cfg.Paths.OriginalDir, id+ext)
	saved, err := fileutil.SaveStream(sourcePath, up.Body, limit, 0o644)
	if errors.Is(err, fileutil.ErrLimitExceeded) {
		return nil, ErrTooLarge
	}
	if errors.Is(err, fileutil.ErrExists) {
		logging.ErrorWithContext(logger, "job id collides with an existing upload", "ingest_duplicate_id",
			logging.String("path", sourcePath),
			logging.String(logging.FieldImpact, "upload rejected; existing job left untouched"),
		)
		return nil, fmt.Errorf("save upload %s: %w", id, jobs.ErrDuplicateID)
	}
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	job := &jobs.Job{
		ID:         id,
		Filename:   filename,
		SourcePath: sourcePath,
		OutputRef:  s.cfg.OutputRef(id),
		Status:     jobs.StatusQueued,
	}
	if err := s.store.Insert(ctx, job); err != nil {
		if rmErr := fileutil.RemoveQuietly(sourcePath); rmErr != nil {
			logger.Warn("orphaned upload left on disk",
				logging.String("path", sourcePath),
				logging.Error(rmErr),
				logging.String(logging.FieldEventType, "ingest_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "remove the file manually"),
				logging.String(logging.FieldImpact, "disk space is not reclaimed"),
			)
		}
		return nil, fmt.Errorf("record job: %w", err)
	}

	logger.Info("upload accepted",
		logging.String(logging.FieldEventType, "upload_accepted"),
		logging.String("filename", filename),
		logging.Int64("bytes", saved.Size),
		logging.String("sha256", saved.SHA256),
	)

	task := transcode.Task{JobID: id, SourcePath: sourcePath, OutputDir: s.cfg.OutputDir(id), Filename: filename}
	if err := s.queue.Submit(task); err != nil {
		message := "could not schedule transcode: " + err.Error()
		if updErr := s.store.UpdateStatus(context.WithoutCancel(ctx), id, jobs.StatusFailed, message); updErr != nil {
			logging.ErrorWithContext(logger, "failed to record scheduling failure", "ingest_status_failed",
				logging.Error(updErr),
				logging.String(logging.FieldErrorHint, "job stays queued and is resubmitted on restart"),
			)
		} else {
			job.Status = jobs.StatusFailed
			job.Message = message
		}
		return job, fmt.Errorf("submit job %s: %w", id, err)
	}
	return job, nil
}
