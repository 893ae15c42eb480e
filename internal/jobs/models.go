package jobs

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a media job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// InterruptedMessage is recorded on jobs that were processing when the server stopped.
const InterruptedMessage = "interrupted by server restart"

// StartedMessage is recorded when a worker picks up a job.
const StartedMessage = "Transcoding started"

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusReady,
	StatusFailed,
}

var transitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing},
	StatusProcessing: {StatusReady, StatusFailed},
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus validates a textual status.
func ParseStatus(value string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == candidate {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown job status %q", value)
}

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}

// CanTransition reports whether from -> to is a legal edge of the job state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Job is one uploaded file and its HLS conversion outcome.
type Job struct {
	ID         string
	Filename   string
	SourcePath string
	// OutputRef is the public playlist location, fixed at creation.
	OutputRef string
	Status    Status
	Message   string
	CreatedAt time.Time
}
