package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"streamer/internal/config"
	"streamer/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventJobReady, notifications.Payload{JobID: "abc"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "ready",
			event:         notifications.EventJobReady,
			payload:       notifications.Payload{JobID: "abc123", Filename: "Holiday.mp4"},
			expectTitle:   "Streamer - Ready",
			expectMessage: "✅ Ready to watch: Holiday.mp4\nJob: abc123",
			expectTags:    "streamer,transcode,ready",
		},
		{
			name:           "failed",
			event:          notifications.EventJobFailed,
			payload:        notifications.Payload{JobID: "abc123", Filename: "broken.mkv", Message: "ffmpeg error: bad input"},
			expectTitle:    "Streamer - Failed",
			expectMessage:  "❌ Transcode failed: broken.mkv\nJob: abc123\nffmpeg error: bad input",
			expectTags:     "streamer,transcode,failed",
			expectPriority: "high",
		},
		{
			name:           "failed without filename",
			event:          notifications.EventJobFailed,
			payload:        notifications.Payload{JobID: "abc123"},
			expectTitle:    "Streamer - Failed",
			expectMessage:  "❌ Transcode failed: abc123\nJob: abc123",
			expectTags:     "streamer,transcode,failed",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Streamer - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "streamer,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, _ := io.ReadAll(r.Body)
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeoutSeconds = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic is read-only", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, notifications.Payload{})
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 403: topic is read-only") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

func TestNtfyServiceIgnoresUnknownEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for unknown event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).Publish(context.Background(), notifications.Event("job_queued"), notifications.Payload{}); err != nil {
		t.Fatalf("expected nil for unknown event, got %v", err)
	}
}
