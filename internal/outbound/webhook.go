package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WebhookPayload is the body posted to a request's callback.url.
type WebhookPayload struct {
	Response string          `json:"response"`
	Channel  string          `json:"channel"`
	Sender   string          `json:"sender"`
	Metadata WebhookMetadata `json:"metadata"`
}

// WebhookMetadata mirrors the subset of Request.Metadata worth echoing
// back to a webhook consumer.
type WebhookMetadata struct {
	CallSid          string `json:"call_sid,omitempty"`
	DiscordChannelID string `json:"discord_channel_id,omitempty"`
	WorkflowID       string `json:"workflow_id,omitempty"`
}

// WebhookClient posts callback payloads to arbitrary operator-supplied
// URLs.
type WebhookClient struct {
	client *http.Client
}

// NewWebhookClient constructs a client sharing this package's default
// timeout.
func NewWebhookClient() *WebhookClient {
	return &WebhookClient{client: &http.Client{Timeout: DefaultTimeout}}
}

// Post sends payload to url as JSON. Transport and non-2xx failures are
// returned for the caller to log; neither is retried.
func (w *WebhookClient) Post(ctx context.Context, url string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbound: marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("outbound: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("outbound: webhook post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("outbound: webhook post returned %d", resp.StatusCode)
	}
	return nil
}
