package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Insert records a new job. A zero CreatedAt is stamped with the current time
// and an empty Status defaults to queued.
func (s *Store) Insert(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("insert job: job is nil")
	}
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("insert job: id is required")
	}
	if job.Status == "" {
		job.Status = StatusQueued
	}
	if _, err := ParseStatus(string(job.Status)); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.CreatedAt = job.CreatedAt.UTC()

	ctx = ensureContext(ctx)
	err := s.retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO media_jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			job.ID,
			job.Filename,
			job.SourcePath,
			job.OutputRef,
			string(job.Status),
			job.Message,
			formatTimestamp(job.CreatedAt),
		); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		if s.dialect.isDuplicate(err) {
			return fmt.Errorf("insert job %s: %w", job.ID, ErrDuplicateID)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get fetches a job by id.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM media_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if isNoRows(err) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns every job, newest first.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	return s.query(ctx, "list jobs",
		`SELECT `+jobColumns+` FROM media_jobs ORDER BY created_at DESC, id DESC`)
}

// ListByStatus returns jobs with the given status, oldest first.
func (s *Store) ListByStatus(ctx context.Context, status Status) ([]*Job, error) {
	return s.query(ctx, "list jobs by status",
		`SELECT `+jobColumns+` FROM media_jobs WHERE status = ? ORDER BY created_at ASC, id ASC`,
		string(status))
}

func (s *Store) query(ctx context.Context, op, query string, args ...any) ([]*Job, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Stats returns job counts keyed by status. Every status is present.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM media_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int, len(allStatuses))
	for _, status := range allStatuses {
		stats[status] = 0
	}
	for rows.Next() {
		var (
			status string
			count  sql.NullInt64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("job stats: %w", err)
		}
		stats[Status(status)] = int(count.Int64)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return stats, nil
}
