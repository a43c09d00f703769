package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"moodreel/internal/config"
)

const userAgent = "moodreel/0.1.0"

// Event names a notification kind.
type Event string

const (
	EventApprovalsPending   Event = "approvals_pending"
	EventVerificationFailed Event = "verification_failed"
	EventCurationCompleted  Event = "curation_completed"
	EventTest               Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a noop when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventApprovalsPending:   cfg.Notifications.Approvals,
			EventVerificationFailed: cfg.Notifications.Verification,
			EventCurationCompleted:  cfg.Notifications.CurationSummary,
			EventTest:               true,
		},
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
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventApprovalsPending:
		count := intValue(payload["count"])
		if count <= 0 {
			return message{}, false
		}
		return message{
			title: "moodreel - Concepts Awaiting Approval",
			body:  fmt.Sprintf("%d concept proposal(s) pending review\nRun: moodreel proposals list", count),
			tags:  []string{"moodreel", "proposals", "review"},
		}, true
	case EventVerificationFailed:
		pass := stringValue(payload["pass"])
		body := fmt.Sprintf("Canonical %s verification failed", pass)
		if scope := stringValue(payload["scope"]); scope != "" {
			body += " for " + scope
		}
		if detail := stringValue(payload["detail"]); detail != "" {
			body += "\n" + detail
		}
		body += "\nScore recompute is blocked until a clean pass."
		return message{
			title:    "moodreel - Verification Failed",
			body:     body,
			tags:     []string{"moodreel", "canonical", "alert"},
			priority: "high",
		}, true
	case EventCurationCompleted:
		processed := intValue(payload["processed"])
		skipped := intValue(payload["skipped"])
		failed := intValue(payload["failed"])
		duration, _ := payload["duration"].(time.Duration)
		duration = max(duration.Round(time.Second), 0)
		title := "moodreel - Curation Complete"
		if failed > 0 {
			title = "moodreel - Curation Complete (with errors)"
		}
		return message{
			title: title,
			body:  fmt.Sprintf("Curation finished in %s: %d processed, %d skipped, %d failed", duration, processed, skipped, failed),
			tags:  []string{"moodreel", "curation", "completed"},
		}, true
	case EventTest:
		return message{
			title:    "moodreel - Test",
			body:     "Notification system test",
			tags:     []string{"moodreel", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
