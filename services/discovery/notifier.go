package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Notifier delivers completion callbacks. Delivery is strictly best-effort;
// callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, settings *NotificationSettings, archiveURL string) error
}

// WebhookNotifier posts the archive location to a caller-supplied URL.
type WebhookNotifier struct {
	client *http.Client
	log    zerolog.Logger
}

// NewWebhookNotifier creates a notifier with a bounded request timeout.
func NewWebhookNotifier(logger zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logger,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, settings *NotificationSettings, archiveURL string) error {
	if settings == nil || settings.Method == "" {
		return nil
	}

	switch settings.Method {
	case NotificationMethodHTTP:
		return n.post(ctx, settings.CallbackURL, archiveURL)
	case NotificationMethodEmail:
		return fmt.Errorf("email notifications: %w", ErrNotSupported)
	default:
		return fmt.Errorf("notification method %q: %w", settings.Method, ErrNotSupported)
	}
}

func (n *WebhookNotifier) post(ctx context.Context, callbackURL, archiveURL string) error {
	payload, err := json.Marshal(map[string]string{"archive_url": archiveURL})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("callback returned %s", resp.Status)
	}
	return nil
}
