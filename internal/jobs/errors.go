package jobs

import "errors"

var (
	// ErrNotFound is returned when no job has the requested id.
	ErrNotFound = errors.New("job not found")
	// ErrDuplicateID is returned when inserting an id that already exists.
	ErrDuplicateID = errors.New("duplicate job id")
	// ErrInvalidTransition is returned when a status change violates the state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)
