// Package assistant invokes the external Claude CLI subprocess that backs
// every bridge-echo conversation and parses its JSON stdout contract.
//
// Invoke never returns an error: every failure mode (non-zero exit,
// malformed JSON, empty result) degrades to a text response so the worker
// loop never has to special-case it.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Response is the outcome of invoking the assistant: always has Text;
// SessionID is empty when the assistant did not return one (caller should
// leave its held session id unchanged in that case).
type Response struct {
	Text      string
	SessionID string
	// Failed marks a transport-level invocation failure (the subprocess
	// itself could not be run or exited non-zero) as distinct from the
	// assistant successfully returning error-shaped content. The worker
	// uses this to count consecutive failures for escalation — it does not
	// change what is delivered to the reply sink.
	Failed bool
}

// rawOutput mirrors the assistant subprocess's JSON stdout contract.
type rawOutput struct {
	Result    string `json:"result"`
	SessionID string `json:"session_id"`
}

// Runner invokes a configured Claude CLI binary.
type Runner struct {
	bin     string
	home    string
	timeout time.Duration
	logger  zerolog.Logger
}

// New constructs a Runner that shells out to bin with working directory and
// HOME both set to home.
func New(bin, home string, timeout time.Duration, logger zerolog.Logger) *Runner {
	return &Runner{
		bin:     bin,
		home:    home,
		timeout: timeout,
		logger:  logger.With().Str("component", "assistant").Logger(),
	}
}

// Invoke runs the assistant with prompt, an optional existing sessionID to
// continue, and an optional selfDoc to append as a system prompt. It never
// returns an error: every failure mode is encoded into Response.Text per
// the subprocess contract.
func (r *Runner) Invoke(ctx context.Context, prompt, sessionID, selfDoc string) Response {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := []string{"-p", prompt, "--output-format", "json", "--dangerously-skip-permissions"}
	if sessionID != "" {
		args = append(args, "-r", sessionID)
	}
	if selfDoc != "" {
		args = append(args, "--append-system-prompt", selfDoc)
	}

	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.Dir = r.home
	cmd.Env = append(os.Environ(),
		"CLAUDE_CODE_ENTRYPOINT=cli",
		"HOME="+r.home,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug().
		Bool("has_session", sessionID != "").
		Int("prompt_len", len(prompt)).
		Msg("invoking assistant")

	runErr := cmd.Run()

	if runErr != nil {
		stderrText := strings.TrimSpace(stderr.String())
		if stderrText == "" {
			stderrText = "Claude returned an error."
		}
		r.logger.Warn().Err(runErr).Str("stderr", stderrText).Msg("assistant invocation failed")
		return Response{Text: stderrText, Failed: true}
	}

	var out rawOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		raw := strings.TrimSpace(stdout.String())
		if raw == "" {
			raw = "No response from Claude."
		}
		r.logger.Warn().Err(err).Msg("assistant stdout was not valid JSON, falling back to raw text")
		return Response{Text: raw}
	}

	text := strings.TrimSpace(out.Result)
	if text == "" {
		text = "No response from Claude."
	}
	return Response{Text: text, SessionID: out.SessionID}
}

// ReadSelfDoc reads the optional self-description file fresh on every
// call. A missing or unreadable file is not an error — it silently
// degrades to "no self-doc", since the file may legitimately not be
// configured.
func ReadSelfDoc(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
