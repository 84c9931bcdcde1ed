package ingress

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnacenta/bridge-echo/internal/health"
	"github.com/dnacenta/bridge-echo/internal/injection"
	"github.com/dnacenta/bridge-echo/internal/metrics"
	"github.com/dnacenta/bridge-echo/internal/queue"
	"github.com/dnacenta/bridge-echo/internal/tracker"
	"github.com/dnacenta/bridge-echo/internal/voice"
)

func newTestServer(t *testing.T) (*Server, *queue.Deque) {
	t.Helper()
	d := queue.NewDeque()
	trk := tracker.New()
	voiceReg := voice.New(time.Minute)
	det := injection.New()
	m := metrics.New()
	submitter := New(d, trk, det, m, zerolog.Nop())
	checker := health.NewChecker(zerolog.Nop())
	return NewServer(submitter, trk, voiceReg, checker, m, zerolog.Nop()), d
}

func TestHandleChat_MissingMessageReturns400(t *testing.T) {
	s, _ := newTestServer(t)
	app := s.App("/metrics")

	req := httptest.NewRequest("POST", "/chat", bytes.NewBufferString(`{"channel":"slack"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandleChat_SuccessRoundTrip(t *testing.T) {
	s, d := newTestServer(t)
	app := s.App("/metrics")

	go func() {
		qr, ok := d.Recv()
		require.True(t, ok)
		qr.Deliver("pong")
	}()

	body, _ := json.Marshal(map[string]string{"message": "ping", "channel": "slack", "sender": "u1"})
	req := httptest.NewRequest("POST", "/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 2000)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	data, _ := io.ReadAll(resp.Body)
	var got chatResponse
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "pong", got.Response)
}

func TestHandleSessionStartedAndCallEnded(t *testing.T) {
	s, _ := newTestServer(t)
	app := s.App("/metrics")

	body, _ := json.Marshal(map[string]string{"call_sid": "CA1", "sender": "u1", "transport": "twilio"})
	req := httptest.NewRequest("POST", "/session-started", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	callSid, ok := s.voice.ActiveCallSid("u1")
	require.True(t, ok)
	assert.Equal(t, "CA1", callSid)

	endBody, _ := json.Marshal(map[string]string{"call_sid": "CA1"})
	endReq := httptest.NewRequest("POST", "/call-ended", bytes.NewReader(endBody))
	endReq.Header.Set("Content-Type", "application/json")
	endResp, err := app.Test(endReq)
	require.NoError(t, err)
	assert.Equal(t, 200, endResp.StatusCode)

	_, ok = s.voice.ActiveCallSid("u1")
	assert.False(t, ok)
}

func TestHandleStatus_ReturnsActiveAndCompleted(t *testing.T) {
	s, _ := newTestServer(t)
	s.tracker.Start("slack", "u1", "hi")
	app := s.App("/metrics")

	req := httptest.NewRequest("GET", "/api/status", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var got map[string]interface{}
	data, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(data, &got))
	active, ok := got["active"].([]interface{})
	require.True(t, ok)
	assert.Len(t, active, 1)
}

func TestHandleHealth_OKWithNoChecks(t *testing.T) {
	s, _ := newTestServer(t)
	app := s.App("/metrics")

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestHealthzAndReadyz(t *testing.T) {
	s, _ := newTestServer(t)
	app := s.App("/metrics")

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/readyz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestMetricsEndpoint_ServesPrometheusExposition(t *testing.T) {
	s, _ := newTestServer(t)
	app := s.App("/metrics")

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), "bridgeecho_active_requests")
}
