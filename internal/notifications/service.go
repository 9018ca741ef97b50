package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"archivist/internal/config"
)

const userAgent = "archivist/1.0"

// Event names a notifiable workflow milestone.
type Event string

const (
	EventAssetFailed        Event = "asset_failed"
	EventAssetsCancelled    Event = "assets_cancelled"
	EventReconcileCompleted Event = "reconcile_completed"
	EventTest               Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes workflow events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when a topic is
// configured, and a noop implementation otherwise.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return Noop()
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Noop()
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

// Noop returns a Service that discards every event.
func Noop() Service {
	return noopService{}
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

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventAssetFailed:
		name := payload.text("name")
		if name == "" {
			name = payload.text("asset_id")
		}
		body := fmt.Sprintf("Processing failed: %s", name)
		if stage := payload.text("stage"); stage != "" {
			body += fmt.Sprintf(" (%s)", stage)
		}
		if detail := payload.text("error"); detail != "" {
			body += "\n" + detail
		}
		return message{
			title:    "Archivist - Processing Failed",
			body:     body,
			tags:     []string{"archivist", "error", payload.text("kind")},
			priority: "high",
		}, true
	case EventAssetsCancelled:
		count := payload.number("count")
		if count == 0 {
			return message{}, false
		}
		return message{
			title: "Archivist - Assets Cancelled",
			body:  fmt.Sprintf("Cancelled %d %s asset(s); retry to reprocess", count, payload.text("reason")),
			tags:  []string{"archivist", "cancelled"},
		}, true
	case EventReconcileCompleted:
		return message{
			title: "Archivist - Reconcile Complete",
			body:  fmt.Sprintf("Attached %d source file(s); %d asset(s) unmatched", payload.number("matched"), payload.number("unmatched")),
			tags:  []string{"archivist", "reconcile"},
		}, true
	case EventTest:
		return message{
			title:    "Archivist - Test",
			body:     "Notification system test",
			tags:     []string{"archivist", "test"},
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
	if tags := compact(data.tags); len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
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

func compact(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (p Payload) text(key string) string {
	if v, ok := p[key]; ok && v != nil {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}

func (p Payload) number(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
