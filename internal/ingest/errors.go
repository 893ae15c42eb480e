package ingest

import (
	"errors"

	"streamer/internal/services"
)

var (
	// ErrValidation marks uploads rejected for their name or type.
	ErrValidation = services.ErrValidation
	// ErrTooLarge marks uploads over the configured size limit.
	ErrTooLarge = errors.New("upload too large")
	// ErrBusy marks uploads refused because the transcode backlog is full.
	ErrBusy = errors.New("transcode queue is full")
)

func invalid(message string) error {
	return services.Wrap(ErrValidation, "", message, nil)
}
