package voice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTouchThenActiveCallSid(t *testing.T) {
	r := New(time.Minute)
	r.Touch("D", "C1")

	sid, ok := r.ActiveCallSid("D")
	assert.True(t, ok)
	assert.Equal(t, "C1", sid)
}

func TestActiveCallSidMissingSender(t *testing.T) {
	r := New(time.Minute)
	_, ok := r.ActiveCallSid("nobody")
	assert.False(t, ok)
}

func TestTouchOverwritesCallSid(t *testing.T) {
	r := New(time.Minute)
	r.Touch("D", "C1")
	r.Touch("D", "C2")

	sid, ok := r.ActiveCallSid("D")
	assert.True(t, ok)
	assert.Equal(t, "C2", sid)
}

func TestExpiresAfterInactivityTimeout(t *testing.T) {
	r := New(20 * time.Millisecond)
	r.Touch("D", "C1")

	time.Sleep(40 * time.Millisecond)

	_, ok := r.ActiveCallSid("D")
	assert.False(t, ok)
}

func TestRemoveDeletesMatchingEntry(t *testing.T) {
	r := New(time.Minute)
	r.Touch("D", "C1")
	r.Touch("E", "C2")

	r.Remove("C1")

	_, ok := r.ActiveCallSid("D")
	assert.False(t, ok)
	sid, ok := r.ActiveCallSid("E")
	assert.True(t, ok)
	assert.Equal(t, "C2", sid)
}

func TestRemoveToleratesMultipleMatches(t *testing.T) {
	r := New(time.Minute)
	r.Touch("D", "shared")
	r.Touch("E", "shared")

	r.Remove("shared")

	_, ok1 := r.ActiveCallSid("D")
	_, ok2 := r.ActiveCallSid("E")
	assert.False(t, ok1)
	assert.False(t, ok2)
}

func TestDistinctSendersHaveIndependentEntries(t *testing.T) {
	r := New(time.Minute)
	r.Touch("D", "C1")
	r.Touch("E", "C2")

	sidD, _ := r.ActiveCallSid("D")
	sidE, _ := r.ActiveCallSid("E")
	assert.Equal(t, "C1", sidD)
	assert.Equal(t, "C2", sidE)
}
