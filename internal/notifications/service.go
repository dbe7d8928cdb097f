package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shortcast/internal/config"
)

const userAgent = "Shortcast-Go/0.1.0"

// Service defines the notification surface exposed to the daemon and
// orchestrator.
type Service interface {
	NotifyVideoReceived(ctx context.Context, title string) error
	NotifyProcessingCompleted(ctx context.Context, title string, generated bool) error
	NotifyPublishCompleted(ctx context.Context, title, url string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:       topic,
		client:         &http.Client{Timeout: timeout},
		sendUpload:     cfg.Notifications.Upload,
		sendProcessing: cfg.Notifications.Processing,
		sendPublish:    cfg.Notifications.Publish,
		sendErrors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint       string
	client         *http.Client
	sendUpload     bool
	sendProcessing bool
	sendPublish    bool
	sendErrors     bool
}

func (n *ntfyService) NotifyVideoReceived(ctx context.Context, title string) error {
	if !n.sendUpload {
		return nil
	}
	data := payload{
		title:   "Shortcast - Video Received",
		message: fmt.Sprintf("Received: %s", strings.TrimSpace(title)),
		tags:    []string{"shortcast", "upload", "received"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyProcessingCompleted(ctx context.Context, title string, generated bool) error {
	if !n.sendProcessing {
		return nil
	}
	message := fmt.Sprintf("Captions already present: %s", strings.TrimSpace(title))
	if generated {
		message = fmt.Sprintf("Subtitles generated and burned in: %s", strings.TrimSpace(title))
	}
	data := payload{
		title:   "Shortcast - Processed",
		message: message,
		tags:    []string{"shortcast", "processing", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPublishCompleted(ctx context.Context, title, url string) error {
	if !n.sendPublish {
		return nil
	}
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Published: %s", title)
	if url = strings.TrimSpace(url); url != "" {
		message = fmt.Sprintf("%s\n%s", message, url)
	}
	data := payload{
		title:    "Shortcast - Published",
		message:  message,
		tags:     []string{"shortcast", "publish", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.sendErrors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Shortcast - Error",
		message:  builder.String(),
		tags:     []string{"shortcast", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Shortcast - Test",
		message:  "Notification system test",
		tags:     []string{"shortcast", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

type noopService struct{}

func (noopService) NotifyVideoReceived(context.Context, string) error             { return nil }
func (noopService) NotifyProcessingCompleted(context.Context, string, bool) error { return nil }
func (noopService) NotifyPublishCompleted(context.Context, string, string) error  { return nil }
func (noopService) NotifyError(context.Context, error, string) error              { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
