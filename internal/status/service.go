package status

import (
	"context"
	"errors"

	"streamer/internal/jobs"
)

// Reader is the slice of the job store the service queries.
type Reader interface {
	Get(ctx context.Context, id string) (*jobs.Job, error)
	List(ctx context.Context) ([]*jobs.Job, error)
	Stats(ctx context.Context) (map[jobs.Status]int, error)
}

var errNoStore = errors.New("status service has no store")

// Service answers status queries.
type Service struct {
	store Reader
}

// NewService constructs a Service around the provided reader.
func NewService(store Reader) *Service {
	return &Service{store: store}
}

// Get returns the view for id, or an error wrapping jobs.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	if s == nil || s.store == nil {
		return View{}, errNoStore
	}
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return FromJob(job), nil
}

// List returns every job, newest first.
func (s *Service) List(ctx context.Context) ([]View, error) {
	if s == nil || s.store == nil {
		return nil, errNoStore
	}
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return FromJobs(list), nil
}

// Summary returns job counts keyed by status name. Every status is present.
func (s *Service) Summary(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, errNoStore
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(stats))
	for _, status := range jobs.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out, nil
}
