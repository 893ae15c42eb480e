package jobs

import (
	"context"
	"fmt"
)

// UpdateStatus overwrites a job's status and message in a single statement.
// It does not consult the state machine; use Transition for lifecycle moves.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status, message string) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE media_jobs SET status = ?, message = ? WHERE id = ?`,
		string(status), message, id,
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if affected == 0 {
		// MySQL reports zero rows when the values were already equal.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Transition moves a job from one status to another, failing with
// ErrInvalidTransition when the edge is illegal or the job is no longer in
// the expected status.
func (s *Store) Transition(ctx context.Context, id string, from, to Status, message string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("job %s %s -> %s: %w", id, from, to, ErrInvalidTransition)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE media_jobs SET status = ?, message = ? WHERE id = ? AND status = ?`,
		string(to), message, id, string(from),
	)
	if err != nil {
		return fmt.Errorf("transition job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition job: %w", err)
	}
	if affected > 0 {
		return nil
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("job %s is %s, expected %s: %w", id, current.Status, from, ErrInvalidTransition)
}

// FailInterrupted marks every processing job failed. Work in flight when the
// process died can never complete, so startup recovery calls this before
// workers start.
func (s *Store) FailInterrupted(ctx context.Context, message string) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE media_jobs SET status = ?, message = ? WHERE status = ?`,
		string(StatusFailed), message, string(StatusProcessing),
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}
