package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"photoport/internal/config"
	"photoport/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		captured.body = string(body)
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte("topic closed"))
		}
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func serviceFor(url string) notifications.Service {
	cfg := config.Default()
	cfg.Notify.NtfyTopic = url
	cfg.Notify.RequestTimeoutSeconds = 5
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if notifications.Enabled(svc) {
		t.Fatal("expected noop service without a topic")
	}
	if err := svc.NotifyRunCompleted(context.Background(), notifications.RunReport{Status: "completed"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if notifications.Enabled(notifications.NewService(nil)) {
		t.Fatal("expected noop service for nil config")
	}
}

func TestNotifyRunCompletedFormatsMessage(t *testing.T) {
	tests := []struct {
		name           string
		report         notifications.RunReport
		expectTitle    string
		expectBody     string
		expectTags     string
		expectPriority string
	}{
		{
			name: "completed",
			report: notifications.RunReport{
				Status:    "completed",
				Root:      "/archive",
				Succeeded: 1200,
				Skipped:   3,
				Pairs:     2,
				Elapsed:   90 * time.Second,
			},
			expectTitle: "photoport - Migration complete",
			expectBody:  "1,200 imported, 3 skipped in 1m30s\nLive photos: 2\nArchive: /archive",
			expectTags:  "photoport,migration,completed",
		},
		{
			name: "completed with failures",
			report: notifications.RunReport{
				Status:    "completed",
				Succeeded: 5,
				Failed:    2,
				Issues:    4,
				Elapsed:   1500 * time.Millisecond,
			},
			expectTitle: "photoport - Migration complete (with failures)",
			expectBody:  "5 imported, 0 skipped, 2 failed in 2s\nIssues: 4",
			expectTags:  "photoport,migration,completed",
		},
		{
			name:        "cancelled",
			report:      notifications.RunReport{Status: "cancelled", Succeeded: 5},
			expectTitle: "photoport - Migration cancelled",
			expectBody:  "5 imported, 0 skipped in 0s",
			expectTags:  "photoport,migration,cancelled",
		},
		{
			name:           "failed",
			report:         notifications.RunReport{Status: "failed"},
			expectTitle:    "photoport - Migration failed",
			expectBody:     "0 imported, 0 skipped in 0s",
			expectTags:     "photoport,migration,failed",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, captured := newCaptureServer(t, http.StatusOK)
			svc := serviceFor(server.URL)
			if !notifications.Enabled(svc) {
				t.Fatal("expected ntfy service to be enabled")
			}
			if err := svc.NotifyRunCompleted(context.Background(), tc.report); err != nil {
				t.Fatalf("NotifyRunCompleted: %v", err)
			}
			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectBody {
				t.Fatalf("expected body %q, got %q", tc.expectBody, captured.body)
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

func TestNotifyErrorIncludesLabel(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK)
	svc := serviceFor(server.URL)
	if err := svc.NotifyError(context.Background(), errors.New("archive root missing"), "migrate"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if captured.body != "Error during migrate: archive root missing" {
		t.Fatalf("unexpected body %q", captured.body)
	}
	if captured.priority != "high" {
		t.Fatalf("expected high priority, got %q", captured.priority)
	}
}

func TestSendReportsServerErrors(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusForbidden)
	svc := serviceFor(server.URL)
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for rejected request")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "topic closed") {
		t.Fatalf("unexpected error %v", err)
	}
}
