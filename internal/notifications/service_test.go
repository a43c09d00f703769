package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"moodreel/internal/config"
	"moodreel/internal/notifications"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
}

func newServer(t *testing.T) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventApprovalsPending, notifications.Payload{"count": 2}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectBody     string
		expectTags     string
		expectPriority string
	}{
		{
			name:        "approvals pending",
			event:       notifications.EventApprovalsPending,
			payload:     notifications.Payload{"count": 3},
			expectTitle: "moodreel - Concepts Awaiting Approval",
			expectBody:  "3 concept proposal(s) pending review",
			expectTags:  "moodreel,proposals,review",
		},
		{
			name:           "verification failed",
			event:          notifications.EventVerificationFailed,
			payload:        notifications.Payload{"pass": "taxonomy", "detail": "1 duplicate group remains"},
			expectTitle:    "moodreel - Verification Failed",
			expectBody:     "Canonical taxonomy verification failed\n1 duplicate group remains",
			expectTags:     "moodreel,canonical,alert",
			expectPriority: "high",
		},
		{
			name:        "curation completed with errors",
			event:       notifications.EventCurationCompleted,
			payload:     notifications.Payload{"processed": 8, "skipped": 1, "failed": 1, "duration": 90 * time.Second},
			expectTitle: "moodreel - Curation Complete (with errors)",
			expectBody:  "Curation finished in 1m30s: 8 processed, 1 skipped, 1 failed",
			expectTags:  "moodreel,curation,completed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := newServer(t)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if len(*got) != 1 {
				t.Fatalf("expected one request, got %d", len(*got))
			}
			req := (*got)[0]
			if req.title != tc.expectTitle {
				t.Fatalf("title = %q, want %q", req.title, tc.expectTitle)
			}
			if !strings.Contains(req.body, tc.expectBody) {
				t.Fatalf("body = %q, want substring %q", req.body, tc.expectBody)
			}
			if req.tags != tc.expectTags {
				t.Fatalf("tags = %q, want %q", req.tags, tc.expectTags)
			}
			if req.priority != tc.expectPriority {
				t.Fatalf("priority = %q, want %q", req.priority, tc.expectPriority)
			}
		})
	}
}

func TestDisabledEventsAreSilent(t *testing.T) {
	server, got := newServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.CurationSummary = false
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	if err := svc.Publish(ctx, notifications.EventCurationCompleted, notifications.Payload{"processed": 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := svc.Publish(ctx, notifications.EventApprovalsPending, notifications.Payload{"count": 0}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(*got) != 0 {
		t.Fatalf("expected no requests, got %d", len(*got))
	}
}

func TestNtfyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	t.Cleanup(server.Close)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
}
