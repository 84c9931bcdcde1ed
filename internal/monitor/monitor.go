// Package monitor implements the bridge-echo terminal monitor: a
// dependency-light CLI leaf that polls the running process's /api/status
// endpoint and renders it with raw ANSI escapes, no TUI library.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

const (
	reset  = "\x1b[0m"
	bold   = "\x1b[1m"
	dim    = "\x1b[2m"
	blue   = "\x1b[38;5;75m"
	green  = "\x1b[38;5;78m"
	orange = "\x1b[38;5;208m"
	red    = "\x1b[38;5;203m"
	purple = "\x1b[38;5;141m"
	gray   = "\x1b[38;5;243m"
	clear  = "\x1b[2J\x1b[H"
)

// pollInterval is how often the monitor refreshes when not run with --once.
const pollInterval = 1 * time.Second

// activeView mirrors internal/tracker.ActiveView's JSON shape.
type activeView struct {
	ID             uint64 `json:"id"`
	Channel        string `json:"channel"`
	MessagePreview string `json:"message_preview"`
	ElapsedSecs    int64  `json:"elapsed_secs"`
}

// completedView mirrors internal/tracker.CompletedView's JSON shape.
type completedView struct {
	ID              uint64 `json:"id"`
	Channel         string `json:"channel"`
	MessagePreview  string `json:"message_preview"`
	ResponsePreview string `json:"response_preview"`
	DurationSecs    int64  `json:"duration_secs"`
}

type statusResponse struct {
	Active    []activeView    `json:"active"`
	Completed []completedView `json:"completed"`
}

// Run polls url and renders frames to stdout until ctx is canceled. If
// once is true it renders a single frame and returns, with ok reporting
// whether the frame could be rendered at all (the caller should exit
// non-zero when ok is false, matching a connect or decode failure).
func Run(ctx context.Context, url string, once bool) bool {
	client := &http.Client{Timeout: 5 * time.Second}

	for {
		if !once {
			fmt.Print(clear)
		}

		ok := renderOnce(ctx, client, url)

		if once {
			return ok
		}

		fmt.Println()
		fmt.Printf("%srefreshing every 1s — Ctrl+C to exit%s\n", dim, reset)

		select {
		case <-ctx.Done():
			return ok
		case <-time.After(pollInterval):
		}
	}
}

func renderOnce(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%sconnection failed:%s %v\n", red, reset, err)
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%sconnection failed:%s %v\n", red, reset, err)
		fmt.Fprintf(os.Stderr, "%sis bridge-echo running?%s\n", dim, reset)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "server returned %s\n", resp.Status)
		return false
	}

	var data statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse response: %v\n", err)
		return false
	}

	render(data)
	return true
}

func render(data statusResponse) {
	fmt.Printf("%s%sbridge-echo monitor%s\n", bold, blue, reset)
	fmt.Printf("%s─────────────────────────────────────────────────%s\n", dim, reset)
	fmt.Println()

	if len(data.Active) > 0 {
		plural := "s"
		if len(data.Active) == 1 {
			plural = ""
		}
		fmt.Printf("%s%s● %d active request%s%s\n", bold, orange, len(data.Active), plural, reset)
		fmt.Println()

		for _, r := range data.Active {
			color := orange
			if r.ElapsedSecs >= 600 {
				color = red
			}
			fmt.Printf("  %s#%d%s  %s%s%s  %s%s%s\n", bold, r.ID, reset, purple, r.Channel, reset, color, fmtDuration(r.ElapsedSecs), reset)
			fmt.Printf("  %s%s%s\n", gray, r.MessagePreview, reset)
			fmt.Println()
		}
	} else {
		fmt.Printf("%sno active requests%s\n", dim, reset)
		fmt.Println()
	}

	fmt.Printf("%s%s✓ %d completed%s %s(last 50)%s\n", bold, green, len(data.Completed), reset, dim, reset)
	fmt.Println()

	shown := data.Completed
	if len(shown) > 10 {
		shown = shown[len(shown)-10:]
	}
	for i := len(shown) - 1; i >= 0; i-- {
		r := shown[i]
		fmt.Printf("  %s#%d%s  %s%s%s  %s%s%s\n", dim, r.ID, reset, purple, r.Channel, reset, green, fmtDuration(r.DurationSecs), reset)
		fmt.Printf("  %s→ %s%s\n", gray, r.MessagePreview, reset)
		fmt.Printf("  %s← %s%s\n", gray, r.ResponsePreview, reset)
		fmt.Println()
	}
	if len(data.Completed) > 10 {
		fmt.Printf("  %s... and %d more%s\n", dim, len(data.Completed)-10, reset)
	}
}

func fmtDuration(secs int64) string {
	m := secs / 60
	s := secs % 60
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
