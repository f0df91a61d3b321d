package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cantrip/internal/config"
)

const userAgent = "Cantrip-CLI/0.1.0"

// Service defines the notification surface exposed to upload components.
type Service interface {
	NotifyBatchCompleted(ctx context.Context, succeeded, failed, queued int, duration time.Duration) error
	NotifySyncCompleted(ctx context.Context, synced int) error
	NotifyUploadsQueued(ctx context.Context, count int) error
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
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		batchEvents: cfg.Notifications.Batch,
		syncEvents:  cfg.Notifications.Sync,
		errorEvents: cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	batchEvents bool
	syncEvents  bool
	errorEvents bool
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, succeeded, failed, queued int, duration time.Duration) error {
	if !n.batchEvents {
		return nil
	}

	duration = duration.Round(time.Second)
	if duration <= 0 {
		duration = time.Second
	}

	var title, message string
	switch {
	case failed == 0 && queued == 0:
		title = "Cantrip - Batch Complete"
		message = fmt.Sprintf("✅ Uploaded %d images in %s", succeeded, duration)
	case failed == 0:
		title = "Cantrip - Batch Complete"
		message = fmt.Sprintf("Uploaded %d images in %s, %d queued for later sync", succeeded, duration, queued)
	default:
		title = "Cantrip - Batch Complete (with errors)"
		message = fmt.Sprintf("Uploaded %d images, %d failed, %d queued in %s", succeeded, failed, queued, duration)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"cantrip", "batch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncCompleted(ctx context.Context, synced int) error {
	if !n.syncEvents {
		return nil
	}
	data := payload{
		title:   "Cantrip - Queue Synced",
		message: fmt.Sprintf("🔄 Connection restored: %d queued images uploaded", synced),
		tags:    []string{"cantrip", "sync", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUploadsQueued(ctx context.Context, count int) error {
	if !n.syncEvents {
		return nil
	}
	data := payload{
		title:   "Cantrip - Uploads Queued",
		message: fmt.Sprintf("📥 Offline: %d images queued for sync", count),
		tags:    []string{"cantrip", "queue", "offline"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errorEvents {
		return nil
	}

	var builder strings.Builder
	builder.WriteString("❌ Error")
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
		title:    "Cantrip - Error",
		message:  builder.String(),
		tags:     []string{"cantrip", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Cantrip - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"cantrip", "test"},
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

func (noopService) NotifyBatchCompleted(context.Context, int, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifySyncCompleted(context.Context, int) error   { return nil }
func (noopService) NotifyUploadsQueued(context.Context, int) error   { return nil }
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
