package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"shortcast/internal/config"
	"shortcast/internal/notifications"
)

func testConfig(endpoint string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = endpoint
	cfg.Notifications.Upload = true
	cfg.Notifications.Processing = true
	cfg.Notifications.Publish = true
	cfg.Notifications.Errors = true
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyVideoReceived(context.Background(), "clip"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsEvents(t *testing.T) {
	type captured struct {
		title    string
		message  string
		tags     string
		priority string
	}
	var got captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = captured{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := notifications.NewService(testConfig(server.URL))
	ctx := context.Background()

	if err := svc.NotifyVideoReceived(ctx, "clip-a"); err != nil {
		t.Fatalf("NotifyVideoReceived: %v", err)
	}
	if got.title != "Shortcast - Video Received" || got.message != "Received: clip-a" {
		t.Fatalf("upload event = %+v", got)
	}

	if err := svc.NotifyProcessingCompleted(ctx, "clip-a", true); err != nil {
		t.Fatalf("NotifyProcessingCompleted: %v", err)
	}
	if got.message != "Subtitles generated and burned in: clip-a" {
		t.Fatalf("processing event = %+v", got)
	}

	if err := svc.NotifyPublishCompleted(ctx, "clip-a", "https://youtube.com/shorts/abc"); err != nil {
		t.Fatalf("NotifyPublishCompleted: %v", err)
	}
	if got.priority != "high" || got.message != "Published: clip-a\nhttps://youtube.com/shorts/abc" {
		t.Fatalf("publish event = %+v", got)
	}

	if err := svc.NotifyError(ctx, errors.New("burn failed"), "processing"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if got.message != "Error with processing: burn failed" {
		t.Fatalf("error event = %+v", got)
	}
}

func TestNtfyServiceRespectsEventToggles(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Notifications.Upload = false
	svc := notifications.NewService(cfg)

	if err := svc.NotifyVideoReceived(context.Background(), "clip"); err != nil {
		t.Fatalf("NotifyVideoReceived: %v", err)
	}
	if requests != 0 {
		t.Fatalf("disabled event should not hit ntfy, got %d requests", requests)
	}
}

func TestNtfyServiceSurfacesHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	svc := notifications.NewService(testConfig(server.URL))
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
