package alert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnacenta/bridge-echo/internal/outbound"
	"github.com/dnacenta/bridge-echo/internal/tracker"
)

func TestEnabled(t *testing.T) {
	trk := tracker.New()
	discord := outbound.NewDiscordClient("tok")
	assert.True(t, New(trk, discord, "chan1", []int{5}, nil, zerolog.Nop()).Enabled())
	assert.False(t, New(trk, discord, "", []int{5}, nil, zerolog.Nop()).Enabled())
	assert.False(t, New(trk, outbound.NewDiscordClient(""), "chan1", []int{5}, nil, zerolog.Nop()).Enabled())
	assert.False(t, New(trk, discord, "chan1", nil, nil, zerolog.Nop()).Enabled())
}

func TestTick_SendsOncePerThresholdAndMarksAlerted(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		mu.Lock()
		bodies = append(bodies, string(buf))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	trk := tracker.New()
	id := trk.Start("slack", "u1", "how long will this take")

	// Force elapsed time past the threshold by completing then immediately
	// re-mimicking an old start is awkward with the real clock; instead
	// exercise tick() directly against a short threshold and a short sleep.
	time.Sleep(10 * time.Millisecond)

	discord := outbound.NewDiscordClientWithBaseURL("tok", srv.URL)
	loop := New(trk, discord, "chan1", []int{0}, nil, zerolog.Nop())
	require.True(t, loop.Enabled())

	loop.tick(context.Background())
	loop.tick(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, bodies, 1, "second tick must not re-alert the same threshold")

	cands := trk.ActiveForAlerting()
	require.Len(t, cands, 1)
	assert.Equal(t, id, cands[0].ID)
	assert.True(t, cands[0].AlertsSent[0])
}

func TestTick_SkipsThresholdsNotYetCrossed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	trk := tracker.New()
	trk.Start("slack", "u1", "short")

	discord := outbound.NewDiscordClientWithBaseURL("tok", srv.URL)
	loop := New(trk, discord, "chan1", []int{60}, nil, zerolog.Nop())
	loop.tick(context.Background())

	cands := trk.ActiveForAlerting()
	require.Len(t, cands, 1)
	assert.False(t, cands[0].AlertsSent[60])
}

func TestTick_MarksAlertedEvenOnPostFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	trk := tracker.New()
	trk.Start("slack", "u1", "message")
	time.Sleep(5 * time.Millisecond)

	discord := outbound.NewDiscordClientWithBaseURL("tok", srv.URL)
	loop := New(trk, discord, "chan1", []int{0}, nil, zerolog.Nop())
	loop.tick(context.Background())

	cands := trk.ActiveForAlerting()
	require.Len(t, cands, 1)
	assert.True(t, cands[0].AlertsSent[0])
}

func TestRun_DisabledLoopReturnsOnContextCancel(t *testing.T) {
	trk := tracker.New()
	loop := New(trk, outbound.NewDiscordClient(""), "", nil, nil, zerolog.Nop())
	assert.False(t, loop.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled loop did not return after cancel")
	}
}
