package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 3100, cfg.Port)
	assert.Equal(t, time.Hour, cfg.SessionTTL())
	assert.Equal(t, "claude", cfg.ClaudeBin)
	assert.Equal(t, "", cfg.SelfPath)
	assert.Equal(t, ".", cfg.Home)
	assert.Equal(t, "", cfg.DiscordBotToken)
	assert.Equal(t, "", cfg.DiscordAlertChannel)
	assert.Equal(t, "", cfg.VoiceURL)
	assert.Equal(t, "", cfg.VoiceToken)
	assert.Equal(t, 300*time.Second, cfg.VoiceSessionTimeout())
	assert.Equal(t, "/metrics", cfg.MetricsPath)

	thresholds, err := cfg.AlertThresholds()
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30}, thresholds)
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "0")
	t.Setenv("DISCORD_BOT_TOKEN", "tok")
	t.Setenv("DISCORD_ALERT_CHANNEL", "chan1")
	t.Setenv("ALERT_THRESHOLDS", "30,10,20")
	t.Setenv("VOICE_URL", "http://voice.example")
	t.Setenv("SLACK_APP_TOKEN", "xapp-test")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_ALLOWED_CHANNELS", "C1, C2,,C3")
	t.Setenv("DISCORD_APP_TOKEN", "dapp-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, time.Duration(0), cfg.SessionTTL())

	thresholds, err := cfg.AlertThresholds()
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30}, thresholds, "thresholds must sort ascending regardless of input order")

	assert.True(t, cfg.SlackEnabled())
	assert.True(t, cfg.DiscordIngressEnabled())
	assert.True(t, cfg.AlertingEnabled())
	assert.True(t, cfg.VoiceEnabled())
	assert.Equal(t, []string{"C1", "C2", "C3"}, cfg.SlackAllowedChannelList())
}

func TestAlertThresholds_InvalidEntryFailsStartup(t *testing.T) {
	cfg := &Config{AlertThresholdsRaw: "10,nope,30"}
	_, err := cfg.AlertThresholds()
	require.Error(t, err)
}

func TestAlertThresholds_EmptyIsNil(t *testing.T) {
	cfg := &Config{AlertThresholdsRaw: ""}
	thresholds, err := cfg.AlertThresholds()
	require.NoError(t, err)
	assert.Nil(t, thresholds)
}

func TestEnabledFlags_AllFalseByDefault(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.SlackEnabled())
	assert.False(t, cfg.DiscordIngressEnabled())
	assert.False(t, cfg.AlertingEnabled())
	assert.False(t, cfg.VoiceEnabled())
	assert.Nil(t, cfg.SlackAllowedChannelList())
}

func TestLoad_InvalidNumericFailsStartup(t *testing.T) {
	os.Clearenv()
	t.Setenv("SESSION_TTL", "not-a-number")
	_, err := Load()
	require.Error(t, err)
}
