package slack

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RateLimiter is a per-key sliding window limiter: at most limit calls to
// Allow within the trailing window duration succeed. The single-worker
// queue this package feeds serializes every channel into one Claude CLI
// invocation, so a chatty Slack channel can starve everyone else; rate
// limiting ingress keeps one noisy sender from doing that.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
}

// NewRateLimiter constructs a RateLimiter allowing up to limit calls per
// window, per key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
	}
}

// Allow reports whether a call under key is permitted right now, recording
// it if so.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	kept := r.hits[key][:0]
	for _, t := range r.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= r.limit {
		r.hits[key] = kept
		return false
	}

	r.hits[key] = append(kept, now)
	return true
}

// Middleware applies cross-cutting ingress policy to inbound Slack events.
// Today that's rate limiting; it is the natural home for anything else
// that should run before an event reaches the forwarder.
type Middleware struct {
	logger  zerolog.Logger
	limiter *RateLimiter
}

// NewMiddleware constructs a Middleware rate limiting each sender to limit
// events per window.
func NewMiddleware(logger zerolog.Logger, limit int, window time.Duration) *Middleware {
	return &Middleware{
		logger:  logger.With().Str("component", "slack.middleware").Logger(),
		limiter: NewRateLimiter(limit, window),
	}
}

// CheckRateLimit reports whether userID is currently within its rate
// budget, logging when it isn't.
func (m *Middleware) CheckRateLimit(userID string) bool {
	allowed := m.limiter.Allow(userID)
	if !allowed {
		m.logger.Warn().Str("user", userID).Msg("rate limit exceeded")
	}
	return allowed
}
