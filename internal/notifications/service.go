package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"photoport/internal/config"
)

const userAgent = "photoport/0.1"

// RunReport is the slice of a finished run that is worth a push message.
type RunReport struct {
	RunID     string
	Root      string
	Status    string
	Succeeded int
	Failed    int
	Skipped   int
	Pairs     int
	Issues    int
	Elapsed   time.Duration
}

// Service publishes run events.
type Service interface {
	NotifyRunCompleted(ctx context.Context, report RunReport) error
	NotifyError(ctx context.Context, err error, label string) error
	TestNotification(ctx context.Context) error
}

// Enabled reports whether svc actually delivers messages.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}

// NewService builds an ntfy-backed Service, or a no-op one when
// notifications.ntfy_topic is empty.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notify.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: cfg.NotifyTimeout()},
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

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, report RunReport) error {
	elapsed := report.Elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s imported, %s skipped", humanize.Comma(int64(report.Succeeded)), humanize.Comma(int64(report.Skipped)))
	if report.Failed > 0 {
		fmt.Fprintf(&body, ", %s failed", humanize.Comma(int64(report.Failed)))
	}
	fmt.Fprintf(&body, " in %s", elapsed)
	if report.Pairs > 0 {
		fmt.Fprintf(&body, "\nLive photos: %s", humanize.Comma(int64(report.Pairs)))
	}
	if report.Issues > 0 {
		fmt.Fprintf(&body, "\nIssues: %s", humanize.Comma(int64(report.Issues)))
	}
	if root := strings.TrimSpace(report.Root); root != "" {
		fmt.Fprintf(&body, "\nArchive: %s", root)
	}

	msg := message{
		title: "photoport - Migration complete",
		body:  body.String(),
		tags:  []string{"photoport", "migration", "completed"},
	}
	switch {
	case report.Status == "cancelled":
		msg.title = "photoport - Migration cancelled"
		msg.tags = []string{"photoport", "migration", "cancelled"}
	case report.Status == "failed":
		msg.title = "photoport - Migration failed"
		msg.tags = []string{"photoport", "migration", "failed"}
		msg.priority = "high"
	case report.Failed > 0:
		msg.title = "photoport - Migration complete (with failures)"
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, label string) error {
	var b strings.Builder
	b.WriteString("Error")
	if label = strings.TrimSpace(label); label != "" {
		b.WriteString(" during ")
		b.WriteString(label)
	}
	b.WriteString(": ")
	if err != nil {
		b.WriteString(strings.TrimSpace(err.Error()))
	} else {
		b.WriteString("unknown")
	}
	return n.send(ctx, message{
		title:    "photoport - Error",
		body:     b.String(),
		tags:     []string{"photoport", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, message{
		title:    "photoport - Test",
		body:     "Notification delivery works",
		tags:     []string{"photoport", "test"},
		priority: "low",
	})
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

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunReport) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error    { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
