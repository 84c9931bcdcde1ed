package slack

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Second)

	// First 3 should pass
	assert.True(t, rl.Allow("user1"))
	assert.True(t, rl.Allow("user1"))
	assert.True(t, rl.Allow("user1"))

	// 4th should fail
	assert.False(t, rl.Allow("user1"))

	// Different user should pass
	assert.True(t, rl.Allow("user2"))

	// After window expires, should pass again
	time.Sleep(1100 * time.Millisecond)
	assert.True(t, rl.Allow("user1"))
}

func TestMiddleware_CheckRateLimit(t *testing.T) {
	logger := zerolog.Nop()
	mw := NewMiddleware(logger, 2, time.Second)

	assert.True(t, mw.CheckRateLimit("user1"))
	assert.True(t, mw.CheckRateLimit("user1"))
	assert.False(t, mw.CheckRateLimit("user1"))
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))
	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow("u1"))
}

func TestRateLimiter_MultipleUsers(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u2"))
	assert.True(t, rl.Allow("u3"))
	assert.False(t, rl.Allow("u1"))
}

func TestNewHandler(t *testing.T) {
	logger := zerolog.Nop()
	mw := NewMiddleware(logger, 10, time.Minute)
	h := NewHandler(logger, mw)
	assert.NotNil(t, h)
	assert.NotNil(t, h.middleware)
}
