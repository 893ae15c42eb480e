package status

import (
	"time"

	"streamer/internal/jobs"
)

// TimeLayout renders timestamps as RFC3339 with milliseconds.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// View is the client-facing shape of a job. The source path stays internal.
type View struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	OutputRef string `json:"hls_path"`
	CreatedAt string `json:"created_at"`
}

// Ready reports whether the playlist can be played.
func (v View) Ready() bool {
	return v.Status == string(jobs.StatusReady)
}

// FromJob converts a stored job into a View.
func FromJob(job *jobs.Job) View {
	if job == nil {
		return View{}
	}
	return View{
		ID:        job.ID,
		Filename:  job.Filename,
		Status:    string(job.Status),
		Message:   job.Message,
		OutputRef: job.OutputRef,
		CreatedAt: formatTime(job.CreatedAt),
	}
}

// FromJobs converts jobs preserving order.
func FromJobs(list []*jobs.Job) []View {
	out := make([]View, 0, len(list))
	for _, job := range list {
		if job == nil {
			continue
		}
		out = append(out, FromJob(job))
	}
	return out
}

// ParseTime reverses the View timestamp format for display code.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(TimeLayout, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}
