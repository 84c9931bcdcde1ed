// Package outbound holds the handful of plain net/http clients the worker,
// alert loop, and ingress adapters all POST through: Discord channel
// messages, webhook callbacks, and voice-inject rerouting. These are a few
// JSON POSTs each, so a raw net/http client is used rather than a full SDK.
// There is exactly one code path that posts to Discord's channel-messages
// endpoint, shared by callback dispatch and the alert loop.
package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout bounds every outbound call this package makes. None of
// them retry — a timeout here simply prevents a stuck transport from
// blocking the worker or alert loop indefinitely.
const DefaultTimeout = 10 * time.Second

// discordAPIBase is Discord's REST API root.
const discordAPIBase = "https://discord.com/api/v10"

// DiscordClient posts messages to Discord's REST API on behalf of the bot.
type DiscordClient struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewDiscordClient constructs a client that authenticates as a bot with
// token. An empty token is valid — PostMessage will simply fail fast with
// a descriptive error, letting the caller log-and-skip per the error
// handling design.
func NewDiscordClient(token string) *DiscordClient {
	return NewDiscordClientWithBaseURL(token, discordAPIBase)
}

// NewDiscordClientWithBaseURL is NewDiscordClient with the API root
// overridden, so callers can point the client at an httptest server.
func NewDiscordClientWithBaseURL(token, baseURL string) *DiscordClient {
	return &DiscordClient{token: token, baseURL: baseURL, client: &http.Client{Timeout: DefaultTimeout}}
}

// Configured reports whether a bot token is present.
func (c *DiscordClient) Configured() bool {
	return c.token != ""
}

// PostMessage sends content to channelID via
// POST https://discord.com/api/v10/channels/{channel_id}/messages.
func (c *DiscordClient) PostMessage(ctx context.Context, channelID, content string) error {
	if c.token == "" {
		return fmt.Errorf("outbound: discord bot token not configured")
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("outbound: marshal discord body: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("outbound: build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("outbound: discord post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("outbound: discord post returned %d", resp.StatusCode)
	}
	return nil
}
