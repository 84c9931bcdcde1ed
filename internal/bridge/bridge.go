// Package bridge adapts Slack Socket Mode events into the shared ingress
// Submitter that every channel (HTTP /chat, Slack, Discord) feeds, and
// relays the worker's reply back to the originating Slack thread.
package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/dnacenta/bridge-echo/internal/queue"
)

// SlackPoster abstracts posting messages to Slack.
type SlackPoster interface {
	PostMessage(channelID string, text string, threadTS string) (string, error)
	UpdateMessage(channelID string, messageTS string, text string) error
	AddReaction(channelID string, messageTS string, emoji string) error
	RemoveReaction(channelID string, messageTS string, emoji string) error
}

// Submitter is the subset of ingress.Submitter the forwarder needs. Kept as
// an interface so tests can stub it without a real queue/tracker/detector.
type Submitter interface {
	Submit(ctx context.Context, req queue.Request) (string, error)
}

// Config holds forwarder configuration.
type Config struct {
	// DefaultTimeout is the max wait for a worker response.
	DefaultTimeout time.Duration

	// BotUserID is the Slack bot's own user ID (e.g. "U0123ABC"). Used to
	// filter out the bot's own messages and strip @mentions.
	BotUserID string

	// MaxConcurrent limits parallel in-flight forwards, independent of the
	// single-worker serialization downstream — this just bounds how many
	// goroutines are parked waiting on a reply at once.
	MaxConcurrent int

	// HistoryLimit caps how many prior thread messages are fetched for
	// context injection. Zero uses the provider's default.
	HistoryLimit int
}

// slackMessageLimit is comfortably under Slack's message-body ceiling,
// leaving room for the mrkdwn formatting splitMessage's markdown-aware
// splitting already accounts for.
const slackMessageLimit = 3000

// DefaultConfig returns sane defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 120 * time.Second,
		MaxConcurrent:  5,
		HistoryLimit:   20,
	}
}

// Bridge forwards Slack messages into the shared ingress Submitter and
// relays replies back to Slack. Thread activity is tracked only in memory
// for this process's lifetime — bridge-echo keeps no state across restarts.
type Bridge struct {
	cfg       Config
	poster    SlackPoster
	submitter Submitter
	history   ThreadHistoryProvider
	warm      *WarmTracker
	sem       chan struct{}
	logger    zerolog.Logger
}

// New creates a new Bridge. history may be nil, in which case no thread
// context is injected into the prompt.
func New(cfg Config, poster SlackPoster, submitter Submitter, history ThreadHistoryProvider, logger zerolog.Logger) *Bridge {
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 120 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}

	return &Bridge{
		cfg:       cfg,
		poster:    poster,
		submitter: submitter,
		history:   history,
		warm:      NewWarmTracker(),
		sem:       make(chan struct{}, cfg.MaxConcurrent),
		logger:    logger.With().Str("component", "bridge").Logger(),
	}
}

// IsActiveThread reports whether this process has already forwarded into
// channelID:threadTS, so a follow-up reply there can skip the @mention
// requirement.
func (b *Bridge) IsActiveThread(channelID, threadTS string) bool {
	if threadTS == "" {
		return false
	}
	return b.warm.IsWarm(ThreadKey(channelID, threadTS))
}

// HandleMessage processes an inbound Slack message and submits it to the
// shared ingress Submitter. It runs asynchronously — the reply is posted
// back to the Slack channel once the worker responds. messageTS is the
// timestamp of the triggering message (for reactions and new threads).
func (b *Bridge) HandleMessage(ctx context.Context, channelID, userID, text, threadTS, messageTS string) {
	if userID == b.cfg.BotUserID {
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if b.cfg.BotUserID != "" {
		mention := fmt.Sprintf("<@%s>", b.cfg.BotUserID)
		text = strings.TrimSpace(strings.TrimPrefix(text, mention))
		if text == "" {
			return
		}
	}

	select {
	case b.sem <- struct{}{}:
	default:
		b.logger.Warn().
			Str("channel", channelID).
			Str("user", userID).
			Msg("bridge at capacity, dropping message")
		return
	}

	go func() {
		defer func() { <-b.sem }()

		b.logger.Info().
			Str("channel", channelID).
			Str("user", userID).
			Str("text", truncate(text, 100)).
			Msg("forwarding to ingress")

		if messageTS != "" {
			_ = b.poster.AddReaction(channelID, messageTS, "hourglass_flowing_sand")
			defer func() {
				_ = b.poster.RemoveReaction(channelID, messageTS, "hourglass_flowing_sand")
			}()
		}

		replyThread := threadTS
		if replyThread == "" {
			replyThread = messageTS
		}

		histCtx := b.threadContext(channelID, replyThread, messageTS)

		submitCtx, cancel := context.WithTimeout(ctx, b.cfg.DefaultTimeout+10*time.Second)
		defer cancel()

		resp, err := b.submitter.Submit(submitCtx, queue.Request{
			Message: text,
			Channel: "slack",
			Sender:  userID,
			Metadata: queue.Metadata{
				Context: histCtx,
			},
		})
		if err != nil {
			b.logger.Error().Err(err).Msg("ingress submit failed")
			if _, postErr := b.poster.PostMessage(channelID, "⚠️ Unable to reach the assistant right now. Please try again.", threadTS); postErr != nil {
				b.logger.Error().Err(postErr).Msg("failed to post error message")
			}
			return
		}

		for _, part := range splitMessage(formatForSlack(resp), slackMessageLimit) {
			if _, err := b.poster.PostMessage(channelID, part, replyThread); err != nil {
				b.logger.Error().Err(err).
					Str("channel", channelID).
					Msg("failed to post response to Slack")
				break
			}
		}

		if replyThread != "" {
			b.warm.MarkWarm(ThreadKey(channelID, replyThread))
		}
	}()
}

// threadContext fetches and formats prior thread history for context
// injection, swallowing fetch errors since history is an enrichment, not a
// correctness requirement.
func (b *Bridge) threadContext(channelID, threadTS, excludeTS string) string {
	if b.history == nil || threadTS == "" {
		return ""
	}
	msgs, err := b.history.GetThreadHistory(channelID, threadTS, b.cfg.HistoryLimit)
	if err != nil {
		b.logger.Debug().Err(err).Msg("thread history fetch failed")
		return ""
	}
	return FormatThreadHistory(msgs, excludeTS)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
