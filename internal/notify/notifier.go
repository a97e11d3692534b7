// Package notify delivers lifecycle events to the notification collaborator.
// Delivery is fire-and-forget: failures are logged and never propagated into
// an already-committed ingestion or checkout.
package notify

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Event names the notification types the core emits.
type Event string

const (
	EventRecordCheckedOut Event = "RecordCheckedOut"
	EventBatchIngested    Event = "BatchIngested"
)

// Notifier is the outbound notification boundary.
type Notifier interface {
	Notify(ctx context.Context, event Event, payload map[string]any)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Event, map[string]any) {}

// WebhookNotifier POSTs events as JSON to a configured endpoint.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	return &WebhookNotifier{client: client, url: url, logger: logger}
}

func (w *WebhookNotifier) Notify(ctx context.Context, event Event, payload map[string]any) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"event":   string(event),
			"payload": payload,
			"sent_at": time.Now().UTC().Format(time.RFC3339),
		}).
		Post(w.url)
	if err != nil {
		w.logger.Warn("notification delivery failed",
			zap.String("event", string(event)),
			zap.Error(err),
		)
		return
	}
	if resp.IsError() {
		w.logger.Warn("notification endpoint rejected event",
			zap.String("event", string(event)),
			zap.Int("status", resp.StatusCode()),
		)
	}
}
