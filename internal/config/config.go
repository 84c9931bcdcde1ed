// Package config loads bridge-echo's startup configuration from
// environment variables via envconfig.Process.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every environment-sourced setting bridge-echo needs at
// startup. All fields are optional; invalid numeric values fail startup.
type Config struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"3100"`

	// SessionTTLSecs and VoiceSessionTimeoutSecs are plain integer seconds
	// on the wire (SESSION_TTL=3600, not 3600s); use the SessionTTL /
	// VoiceSessionTimeout accessors for time.Duration values.
	SessionTTLSecs int64 `envconfig:"SESSION_TTL" default:"3600"`

	ClaudeBin string `envconfig:"CLAUDE_BIN" default:"claude"`
	SelfPath  string `envconfig:"SELF_PATH"`
	Home      string `envconfig:"HOME" default:"."`

	DiscordBotToken     string `envconfig:"DISCORD_BOT_TOKEN"`
	DiscordAlertChannel string `envconfig:"DISCORD_ALERT_CHANNEL"`
	AlertThresholdsRaw  string `envconfig:"ALERT_THRESHOLDS" default:"10,20,30"`

	VoiceURL                string `envconfig:"VOICE_URL"`
	VoiceToken              string `envconfig:"VOICE_TOKEN"`
	VoiceSessionTimeoutSecs int64  `envconfig:"VOICE_SESSION_TIMEOUT" default:"300"`

	// Slack/Discord ingress adapters and the metrics endpoint. The
	// adapters start only when their tokens are set.
	SlackAppToken        string `envconfig:"SLACK_APP_TOKEN"`
	SlackBotToken        string `envconfig:"SLACK_BOT_TOKEN"`
	SlackAllowedChannels string `envconfig:"SLACK_ALLOWED_CHANNELS"`
	DiscordAppToken      string `envconfig:"DISCORD_APP_TOKEN"`
	MetricsPath          string `envconfig:"METRICS_PATH" default:"/metrics"`

	// TelegramBotToken/TelegramChatID configure the operator escalation
	// path (internal/escalation.TelegramNotifier). Falls back to logging
	// escalations if unset.
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

// Load reads configuration from environment variables with no prefix.
func Load() (*Config, error) {
	return LoadWithPrefix("")
}

// LoadWithPrefix reads configuration from environment variables, each
// prefixed with prefix. bridge-echo itself always calls Load with an
// empty prefix; the prefix form exists for side-by-side deployments.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// SessionTTL returns the worker's conversational-session TTL.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSecs) * time.Second
}

// VoiceSessionTimeout returns the voice registry's inactivity expiry.
func (c *Config) VoiceSessionTimeout() time.Duration {
	return time.Duration(c.VoiceSessionTimeoutSecs) * time.Second
}

// AlertThresholds parses ALERT_THRESHOLDS into an ascending list of
// minutes. Startup fails if any entry is not a valid non-negative integer.
func (c *Config) AlertThresholds() ([]int, error) {
	if strings.TrimSpace(c.AlertThresholdsRaw) == "" {
		return nil, nil
	}
	parts := strings.Split(c.AlertThresholdsRaw, ",")
	thresholds := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ALERT_THRESHOLDS entry %q: %w", p, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid ALERT_THRESHOLDS entry %q: must be non-negative", p)
		}
		thresholds = append(thresholds, n)
	}
	sort.Ints(thresholds)
	return thresholds, nil
}

// SlackAllowedChannelList returns the parsed list of Slack channel IDs the
// bot is permitted to post into. Empty (fail-closed) if not configured.
func (c *Config) SlackAllowedChannelList() []string {
	if c.SlackAllowedChannels == "" {
		return nil
	}
	parts := strings.Split(c.SlackAllowedChannels, ",")
	channels := make([]string, 0, len(parts))
	for _, ch := range parts {
		ch = strings.TrimSpace(ch)
		if ch != "" {
			channels = append(channels, ch)
		}
	}
	return channels
}

// SlackEnabled reports whether both Slack tokens are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

// DiscordIngressEnabled reports whether the Discord gateway adapter should
// start. Distinct from DiscordBotToken, which signs outbound REST calls
// shared by the worker and alert loop — in practice both are usually the
// same bot token, but they are independently configurable.
func (c *Config) DiscordIngressEnabled() bool {
	return c.DiscordAppToken != ""
}

// AlertingEnabled reports whether a Discord bot token and an alert channel
// are both configured. The threshold list is not checked here; an empty
// ALERT_THRESHOLDS also leaves the alert loop disabled.
func (c *Config) AlertingEnabled() bool {
	return c.DiscordBotToken != "" && c.DiscordAlertChannel != ""
}

// VoiceEnabled reports whether cross-channel voice rerouting is
// configured.
func (c *Config) VoiceEnabled() bool {
	return c.VoiceURL != ""
}

// TelegramEnabled reports whether operator escalations can be sent via
// Telegram instead of only being logged.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}
