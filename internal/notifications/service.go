package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"streamer/internal/config"
)

const userAgent = "streamer/1.0"

// Event identifies what happened to a job.
type Event string

const (
	EventJobReady  Event = "job_ready"
	EventJobFailed Event = "job_failed"
	EventTest      Event = "test"
)

// Payload describes the job an event refers to.
type Payload struct {
	JobID    string
	Filename string
	Message  string
}

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, p Payload) (message, bool) {
	name := strings.TrimSpace(p.Filename)
	if name == "" {
		name = p.JobID
	}
	switch event {
	case EventJobReady:
		return message{
			title: "Streamer - Ready",
			body:  fmt.Sprintf("✅ Ready to watch: %s\nJob: %s", name, p.JobID),
			tags:  []string{"streamer", "transcode", "ready"},
		}, true
	case EventJobFailed:
		body := fmt.Sprintf("❌ Transcode failed: %s\nJob: %s", name, p.JobID)
		if detail := strings.TrimSpace(p.Message); detail != "" {
			body += "\n" + detail
		}
		return message{
			title:    "Streamer - Failed",
			body:     body,
			tags:     []string{"streamer", "transcode", "failed"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Streamer - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"streamer", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
