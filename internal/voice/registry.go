// Package voice tracks which sender currently owns an active voice call,
// so a reply produced on another channel can be rerouted into that call.
//
// The registry is a thin domain wrapper around the generic lru.Cache: a
// touch resets the entry's TTL exactly like "last_activity = now", and a
// lookup past the TTL returns not-found, giving lazy expiry. No background
// sweep goroutine is needed — the cache already expires entries on read.
package voice

import (
	"time"

	"github.com/dnacenta/bridge-echo/lru"
)

// maxSessions bounds the number of simultaneously tracked callers. Voice
// sessions are naturally self-limited by concurrent phone lines, so this
// ceiling exists only to keep the map bounded; the oldest entry is evicted
// only if it is ever hit.
const maxSessions = 10000

// Registry maps sender to an active call_sid with inactivity expiry.
type Registry struct {
	cache   *lru.Cache[string, string]
	timeout time.Duration
}

// New constructs a Registry whose entries expire after timeout of
// inactivity.
func New(timeout time.Duration) *Registry {
	return &Registry{
		cache:   lru.New[string, string](maxSessions, lru.WithTTL[string, string](timeout)),
		timeout: timeout,
	}
}

// Touch registers or refreshes sender's active call, always overwriting
// callSid and resetting the inactivity clock.
func (r *Registry) Touch(sender, callSid string) {
	r.cache.Put(sender, callSid)
}

// ActiveCallSid returns the call_sid for sender if it was touched within
// the registry's timeout, or ("", false) otherwise.
func (r *Registry) ActiveCallSid(sender string) (string, bool) {
	return r.cache.Get(sender)
}

// CacheStats returns a point-in-time snapshot of the underlying cache's
// hit/miss/eviction/expiration counters, for republishing as Prometheus
// gauges.
func (r *Registry) CacheStats() lru.MetricsSnapshot {
	return r.cache.Metrics()
}

// Remove deletes every entry whose call_sid equals callSid. Callers expect
// at most one match, but the scan tolerates more.
func (r *Registry) Remove(callSid string) {
	for _, sender := range r.cache.Keys() {
		if sid, ok := r.cache.Peek(sender); ok && sid == callSid {
			r.cache.Delete(sender)
		}
	}
}
