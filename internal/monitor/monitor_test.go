package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "0s"},
		{45, "45s"},
		{60, "1m 0s"},
		{125, "2m 5s"},
	}

	for _, tt := range tests {
		if got := fmtDuration(tt.secs); got != tt.want {
			t.Errorf("fmtDuration(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestRunOnceSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(statusResponse{
			Active: []activeView{{ID: 1, Channel: "slack", MessagePreview: "hi", ElapsedSecs: 5}},
			Completed: []completedView{
				{ID: 2, Channel: "discord", MessagePreview: "q", ResponsePreview: "a", DurationSecs: 3},
			},
		})
	}))
	defer srv.Close()

	ok := Run(context.Background(), srv.URL, true)
	if !ok {
		t.Error("expected successful single-frame render")
	}
}

func TestRunOnceConnectFailure(t *testing.T) {
	ok := Run(context.Background(), "http://127.0.0.1:1/api/status", true)
	if ok {
		t.Error("expected failure when server is unreachable")
	}
}

func TestRunOnceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ok := Run(context.Background(), srv.URL, true)
	if ok {
		t.Error("expected failure on non-200 response")
	}
}
