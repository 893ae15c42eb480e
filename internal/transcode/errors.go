package transcode

import (
	"errors"
	"fmt"

	"streamer/internal/services"
)

var (
	// ErrTranscodeFailed marks a transcoder run that exited non-zero.
	ErrTranscodeFailed = errors.New("transcode failed")
	// ErrUnexpectedFault marks failures outside the transcoder itself: directory
	// creation, process start, timeouts, cancellation, and recovered panics.
	ErrUnexpectedFault = errors.New("unexpected transcode fault")
)

// FailureError describes a transcoder run that exited with a non-zero status.
type FailureError struct {
	ExitCode   int
	Diagnostic string
}

func (e *FailureError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("ffmpeg exited with status %d", e.ExitCode)
	}
	return fmt.Sprintf("ffmpeg exited with status %d: %s", e.ExitCode, e.Diagnostic)
}

func (e *FailureError) Unwrap() error { return ErrTranscodeFailed }

// faultError carries an ErrUnexpectedFault classification without adding the
// marker to the text, so Error() is suitable as a stored job message once the
// services marker is stripped.
type faultError struct {
	err error
}

func (f *faultError) Error() string { return f.err.Error() }

func (f *faultError) Unwrap() []error { return []error{ErrUnexpectedFault, f.err} }

func fault(marker error, operation, message string, err error) error {
	return &faultError{err: services.Wrap(marker, operation, message, err)}
}
