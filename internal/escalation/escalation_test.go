package escalation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) Notify(_ context.Context, _ Escalation) error {
	c.calls++
	return c.err
}

func TestLogNotifier_Notify(t *testing.T) {
	n := NewLogNotifier(nil)
	err := n.Notify(context.Background(), Escalation{
		Level:   LevelWarning,
		Title:   "test warning",
		Message: "something happened",
		Source:  "test",
		Error:   errors.New("boom"),
	})
	require.NoError(t, err)
}

func TestMultiNotifier_AllCalled(t *testing.T) {
	n1 := &countingNotifier{}
	n2 := &countingNotifier{}

	multi := NewMultiNotifier(n1, n2)
	err := multi.Notify(context.Background(), Escalation{
		Level:   LevelInfo,
		Title:   "multi test",
		Message: "both notifiers should be called",
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, n1.calls)
	assert.Equal(t, 1, n2.calls)
}

func TestMultiNotifier_ContinuesPastFailure(t *testing.T) {
	n1 := &countingNotifier{err: errors.New("down")}
	n2 := &countingNotifier{}

	multi := NewMultiNotifier(n1, n2)
	err := multi.Notify(context.Background(), Escalation{Title: "x"})
	assert.Error(t, err)
	assert.Equal(t, 1, n2.calls, "a failing notifier must not stop the fan-out")
}

func TestLevelEmoji(t *testing.T) {
	assert.Equal(t, "🚨", levelEmoji(LevelCritical))
	assert.Equal(t, "⚠️", levelEmoji(LevelWarning))
	assert.Equal(t, "ℹ️", levelEmoji(LevelInfo))
	assert.Equal(t, "ℹ️", levelEmoji("unknown"))
}

func TestLevelConstants(t *testing.T) {
	assert.Equal(t, Level("info"), LevelInfo)
	assert.Equal(t, Level("warning"), LevelWarning)
	assert.Equal(t, Level("critical"), LevelCritical)
}

func TestDedupingNotifier_SuppressesRepeat(t *testing.T) {
	inner := &countingNotifier{}
	d := NewDedupingNotifier(inner, time.Hour)

	e := Escalation{Level: LevelCritical, Title: "assistant invocation failing repeatedly", Source: "worker"}
	require.NoError(t, d.Notify(context.Background(), e))
	require.NoError(t, d.Notify(context.Background(), e))
	require.NoError(t, d.Notify(context.Background(), e))

	assert.Equal(t, 1, inner.calls, "repeat escalations within the cooldown must be suppressed")
}

func TestDedupingNotifier_DistinctKeysNotSuppressed(t *testing.T) {
	inner := &countingNotifier{}
	d := NewDedupingNotifier(inner, time.Hour)

	require.NoError(t, d.Notify(context.Background(), Escalation{Title: "a", Source: "worker"}))
	require.NoError(t, d.Notify(context.Background(), Escalation{Title: "b", Source: "worker"}))
	require.NoError(t, d.Notify(context.Background(), Escalation{Title: "a", Source: "alert"}))

	assert.Equal(t, 3, inner.calls, "distinct Source/Title pairs must not suppress each other")
}

func TestDedupingNotifier_SuppressesEvenOnInnerError(t *testing.T) {
	inner := &countingNotifier{err: errors.New("telegram unreachable")}
	d := NewDedupingNotifier(inner, time.Hour)

	e := Escalation{Title: "x", Source: "worker"}
	err1 := d.Notify(context.Background(), e)
	err2 := d.Notify(context.Background(), e)

	assert.Error(t, err1)
	assert.NoError(t, err2, "second call within cooldown is suppressed, not retried")
	assert.Equal(t, 1, inner.calls)
}

func TestDedupingNotifier_ZeroCooldownNeverSuppresses(t *testing.T) {
	inner := &countingNotifier{}
	d := NewDedupingNotifier(inner, 0)

	e := Escalation{Title: "x", Source: "worker"}
	require.NoError(t, d.Notify(context.Background(), e))
	require.NoError(t, d.Notify(context.Background(), e))

	assert.Equal(t, 2, inner.calls)
}
