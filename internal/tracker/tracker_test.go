package tracker

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAssignsIncreasingIDs(t *testing.T) {
	tr := New()
	a := tr.Start("slack", "D", "hi")
	b := tr.Start("slack", "D", "again")
	assert.Equal(t, a+1, b)
}

func TestStartThenActiveSnapshotContainsRequest(t *testing.T) {
	tr := New()
	id := tr.Start("slack", "D", "hello world")
	snap := tr.ActiveSnapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, id, snap[0].ID)
	assert.Equal(t, "hello world", snap[0].MessagePreview)
}

func TestMessagePreviewTruncatesAt80Bytes(t *testing.T) {
	tr := New()
	long := strings.Repeat("a", 200)
	tr.Start("slack", "D", long)
	snap := tr.ActiveSnapshot()
	require.Len(t, snap, 1)
	assert.True(t, strings.HasSuffix(snap[0].MessagePreview, "..."))
	assert.LessOrEqual(t, len(snap[0].MessagePreview), 83)
}

func TestCompleteMovesToCompletedAndClearsActive(t *testing.T) {
	tr := New()
	id := tr.Start("slack", "D", "hi")
	tr.Complete(id, "response text")

	assert.Empty(t, tr.ActiveSnapshot())
	completed := tr.CompletedSnapshot()
	require.Len(t, completed, 1)
	assert.Equal(t, id, completed[0].ID)
	assert.Equal(t, "response text", completed[0].ResponsePreview)
	assert.GreaterOrEqual(t, completed[0].DurationSecs, int64(0))
}

func TestCompleteUnknownIDIsNoOp(t *testing.T) {
	tr := New()
	tr.Complete(999, "whatever")
	assert.Empty(t, tr.CompletedSnapshot())
}

func TestCompletedHistoryEvictsOldest(t *testing.T) {
	tr := New()
	for i := 0; i < MaxCompleted+10; i++ {
		id := tr.Start("slack", "D", "msg")
		tr.Complete(id, "resp")
	}
	completed := tr.CompletedSnapshot()
	assert.Len(t, completed, MaxCompleted)
	// oldest retained entry should be the 11th started (1-indexed ids 11..60)
	assert.Equal(t, uint64(11), completed[0].ID)
}

func TestMarkAlertedIsIdempotentAndNoOpWhenInactive(t *testing.T) {
	tr := New()
	id := tr.Start("slack", "D", "msg")
	tr.MarkAlerted(id, 10)
	tr.MarkAlerted(id, 10)

	candidates := tr.ActiveForAlerting()
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].AlertsSent[10])
	assert.False(t, candidates[0].AlertsSent[20])

	tr.Complete(id, "done")
	tr.MarkAlerted(id, 30) // no-op, id no longer active
}

func TestHasActiveOnOtherChannel(t *testing.T) {
	tr := New()
	tr.Start("slack", "D", "hi")

	assert.True(t, tr.HasActiveOnOtherChannel("D", "discord"))
	assert.False(t, tr.HasActiveOnOtherChannel("D", "slack"))
	assert.False(t, tr.HasActiveOnOtherChannel("other-sender", "discord"))
}

func TestActiveForAlertingElapsedIncreases(t *testing.T) {
	tr := New()
	id := tr.Start("slack", "D", "hi")
	time.Sleep(10 * time.Millisecond)
	candidates := tr.ActiveForAlerting()
	require.Len(t, candidates, 1)
	assert.Equal(t, id, candidates[0].ID)
	assert.GreaterOrEqual(t, candidates[0].ElapsedSecs, int64(0))
}
