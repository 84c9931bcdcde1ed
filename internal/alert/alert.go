// Package alert runs the periodic loop that pages an operator about
// requests that have been in flight for an unusually long time, posting
// to Discord at each configured threshold exactly once per request.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dnacenta/bridge-echo/internal/metrics"
	"github.com/dnacenta/bridge-echo/internal/outbound"
	"github.com/dnacenta/bridge-echo/internal/tracker"
)

// tickInterval is how often the loop scans for newly-crossed thresholds.
const tickInterval = 30 * time.Second

// Loop periodically scans the tracker's active requests and notifies
// Discord the first time each crosses one of its configured thresholds.
type Loop struct {
	tracker    *tracker.Tracker
	discord    *outbound.DiscordClient
	channelID  string
	thresholds []int // ascending minutes
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// New constructs a Loop. It is inert — Enabled() reports false — if
// channelID is empty, discord has no token configured, or thresholds is
// empty.
func New(trk *tracker.Tracker, discord *outbound.DiscordClient, channelID string, thresholds []int, m *metrics.Metrics, logger zerolog.Logger) *Loop {
	return &Loop{
		tracker:    trk,
		discord:    discord,
		channelID:  channelID,
		thresholds: thresholds,
		metrics:    m,
		logger:     logger.With().Str("component", "alert").Logger(),
	}
}

// Enabled reports whether the loop has everything it needs to actually
// post alerts.
func (l *Loop) Enabled() bool {
	return l.channelID != "" && l.discord != nil && l.discord.Configured() && len(l.thresholds) > 0
}

// Run blocks, ticking every 30 seconds, until ctx is canceled.
func (l *Loop) Run(ctx context.Context) {
	if !l.Enabled() {
		l.logger.Debug().Msg("alert loop disabled: missing discord token, channel, or thresholds")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	elapsedMin := func(secs int64) int64 { return secs / 60 }

	for _, cand := range l.tracker.ActiveForAlerting() {
		minutes := elapsedMin(cand.ElapsedSecs)
		for _, threshold := range l.thresholds {
			if int64(threshold) > minutes {
				break // thresholds is ascending; none further can match yet
			}
			if cand.AlertsSent[threshold] {
				continue
			}
			l.send(ctx, cand, threshold, minutes)
		}
	}
}

func (l *Loop) send(ctx context.Context, cand tracker.AlertCandidate, threshold int, minutes int64) {
	text := fmt.Sprintf(
		"⚠️ **bridge-echo alert** — request #%d on `%s` has been running for **%d min**\n> %s",
		cand.ID, cand.Channel, minutes, cand.MessagePreview,
	)

	err := l.discord.PostMessage(ctx, l.channelID, text)
	outcome := "sent"
	if err != nil {
		outcome = "failed"
		l.logger.Warn().Err(err).Uint64("request_id", cand.ID).Int("threshold", threshold).Msg("alert post failed")
	}
	if l.metrics != nil {
		l.metrics.RecordAlert(outcome)
	}

	// Marked regardless of POST outcome: a transient Discord failure should
	// not cause the same threshold to be retried forever, re-alerting an
	// operator who already may have missed the first attempt.
	l.tracker.MarkAlerted(cand.ID, threshold)
}
