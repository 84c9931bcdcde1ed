package trust

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_TrustedChannels(t *testing.T) {
	assert.Equal(t, Trusted, Classify("reflection"))
	assert.Equal(t, Trusted, Classify("system"))
}

func TestClassify_VerifiedChannels(t *testing.T) {
	for _, ch := range []string{"slack", "slack-echo", "discord", "discord-echo"} {
		assert.Equal(t, Verified, Classify(ch), ch)
	}
}

func TestClassify_UntrustedChannels(t *testing.T) {
	for _, ch := range []string{"phone", "unknown", "", "voice"} {
		assert.Equal(t, Untrusted, Classify(ch), ch)
	}
}

func TestContext_ContainsChannelName(t *testing.T) {
	ctx := Context("slack", Verified)
	assert.Contains(t, ctx, "slack")
	assert.Contains(t, ctx, "VERIFIED")
}

func TestContext_TrustedAllowsTools(t *testing.T) {
	ctx := Context("system", Trusted)
	assert.Contains(t, ctx, "TRUSTED")
	assert.True(t, strings.Contains(ctx, "all tools freely"))
}

func TestContext_UntrustedRestricts(t *testing.T) {
	ctx := Context("phone", Untrusted)
	assert.Contains(t, ctx, "UNTRUSTED")
	assert.Contains(t, ctx, "Do NOT execute")
}
