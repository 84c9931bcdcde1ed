// Package worker runs the single long-running consumer that dequeues
// requests, invokes the assistant, and fans the response out to whichever
// sinks the request asked for. There is exactly one Worker per process —
// that singularity is what lets the assistant keep one conversational
// session.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dnacenta/bridge-echo/internal/assistant"
	"github.com/dnacenta/bridge-echo/internal/chunk"
	"github.com/dnacenta/bridge-echo/internal/escalation"
	"github.com/dnacenta/bridge-echo/internal/metrics"
	"github.com/dnacenta/bridge-echo/internal/outbound"
	"github.com/dnacenta/bridge-echo/internal/queue"
	"github.com/dnacenta/bridge-echo/internal/tracker"
	"github.com/dnacenta/bridge-echo/internal/voice"
)

const discordChunkBytes = 2000

// consecutiveFailuresBeforeEscalation is how many transport-level assistant
// invocation failures in a row trigger an operator page. The count resets on
// the next successful invocation and after every escalation attempt, so each
// further run of this many failures pages again.
const consecutiveFailuresBeforeEscalation = 3

// Config bundles the worker's tunables, all sourced from startup
// configuration.
type Config struct {
	Home        string
	SelfDocPath string
	SessionTTL  time.Duration
}

// Worker is the single consumer draining the priority queue. Its
// sessionID/lastUsed fields are owned exclusively by the Run goroutine —
// no locking is needed for them.
type Worker struct {
	cfg Config

	deque      *queue.Deque
	tracker    *tracker.Tracker
	voice      *voice.Registry
	runner     *assistant.Runner
	discord    *outbound.DiscordClient
	voiceInj   *outbound.VoiceInjector
	webhook    *outbound.WebhookClient
	metrics    *metrics.Metrics
	escalation escalation.Notifier
	logger     zerolog.Logger

	sessionID           string
	lastUsed            time.Time
	consecutiveFailures int

	heartbeat atomic.Int64
}

// New constructs a Worker. escalationNotifier may be nil, in which case
// repeated-failure paging is skipped.
func New(
	cfg Config,
	deque *queue.Deque,
	trk *tracker.Tracker,
	voiceReg *voice.Registry,
	runner *assistant.Runner,
	discord *outbound.DiscordClient,
	voiceInj *outbound.VoiceInjector,
	webhook *outbound.WebhookClient,
	m *metrics.Metrics,
	notifier escalation.Notifier,
	logger zerolog.Logger,
) *Worker {
	return &Worker{
		cfg:        cfg,
		deque:      deque,
		tracker:    trk,
		voice:      voiceReg,
		runner:     runner,
		discord:    discord,
		voiceInj:   voiceInj,
		webhook:    webhook,
		metrics:    m,
		escalation: notifier,
		logger:     logger.With().Str("component", "worker").Logger(),
	}
}

// Heartbeat returns the unix time of the last completed Recv iteration,
// for the health checker's worker_heartbeat readiness check.
func (w *Worker) Heartbeat() int64 {
	return w.heartbeat.Load()
}

// Run drains the queue until it is closed. It never returns early on a
// single request's failure — only Close() on the queue ends the loop.
func (w *Worker) Run(ctx context.Context) {
	for {
		req, ok := w.deque.Recv()
		w.heartbeat.Store(time.Now().Unix())
		if !ok {
			return
		}
		w.process(ctx, req)
	}
}

func (w *Worker) process(ctx context.Context, req *queue.QueuedRequest) {
	now := time.Now()

	// 1. Session TTL check.
	if w.sessionID != "" && now.Sub(w.lastUsed) > w.cfg.SessionTTL {
		w.logger.Debug().Msg("session ttl expired, discarding session id")
		w.sessionID = ""
	}

	// 2. Voice registration.
	if req.Channel == "voice" && req.Metadata.CallSid != "" {
		w.voice.Touch(req.Sender, req.Metadata.CallSid)
	}

	// 3. Track start.
	id := w.tracker.Start(req.Channel, req.Sender, req.Message)
	if w.metrics != nil {
		w.metrics.SetActiveRequests(w.tracker.ActiveCount())
	}

	// 4. Invoke.
	selfDoc := assistant.ReadSelfDoc(w.cfg.SelfDocPath)
	resp := w.runner.Invoke(ctx, req.Prompt, w.sessionID, selfDoc)
	w.recordFailure(resp.Failed)

	// 5. Track complete.
	w.tracker.Complete(id, resp.Text)
	w.lastUsed = time.Now()
	if resp.SessionID != "" {
		w.sessionID = resp.SessionID
	}

	if w.metrics != nil {
		outcome := "ok"
		if resp.Failed {
			outcome = "error"
		}
		w.metrics.RecordRequest(req.Channel, outcome)
		w.metrics.ObserveDuration(req.Channel, time.Since(now).Seconds())
		w.metrics.SetActiveRequests(w.tracker.ActiveCount())
	}

	// 6. Voice rerouting.
	injected := w.reroute(ctx, req, resp.Text)

	// 7. Callback dispatch.
	w.dispatchCallback(ctx, req, resp.Text, injected)

	// 8. Reply sink.
	if injected {
		req.Deliver("Responding on call.")
	} else {
		req.Deliver(resp.Text)
	}
}

func (w *Worker) recordFailure(failed bool) {
	if !failed {
		w.consecutiveFailures = 0
		return
	}
	w.consecutiveFailures++
	if w.consecutiveFailures >= consecutiveFailuresBeforeEscalation && w.escalation != nil {
		err := w.escalation.Notify(context.Background(), escalation.Escalation{
			Level:   escalation.LevelCritical,
			Title:   "assistant invocation failing repeatedly",
			Message: fmt.Sprintf("%d consecutive assistant invocations have failed", w.consecutiveFailures),
			Source:  "worker",
		})
		if err != nil {
			w.logger.Warn().Err(err).Msg("escalation notify failed")
		}
		w.consecutiveFailures = 0
	}
}

// reroute attempts to deliver text into an active voice call belonging to
// req.Sender, if the request itself did not arrive on the voice channel.
// Any failure — missing endpoint, no active session, or transport error —
// falls back to the normal channel, per the error handling design.
func (w *Worker) reroute(ctx context.Context, req *queue.QueuedRequest, text string) bool {
	if req.Channel == "voice" || w.voiceInj == nil || !w.voiceInj.Configured() {
		return false
	}
	callSid, active := w.voice.ActiveCallSid(req.Sender)
	if !active {
		return false
	}

	err := w.voiceInj.Inject(ctx, callSid, text)
	if err != nil {
		w.logger.Warn().Err(err).Str("sender", req.Sender).Msg("voice inject failed, falling back to original channel")
		if w.metrics != nil {
			w.metrics.RecordVoiceInjection("failed")
		}
		return false
	}
	if w.metrics != nil {
		w.metrics.RecordVoiceInjection("ok")
	}
	return true
}

func (w *Worker) dispatchCallback(ctx context.Context, req *queue.QueuedRequest, text string, injected bool) {
	if req.Callback == nil {
		return
	}

	switch req.Callback.Type {
	case queue.CallbackDiscord:
		if injected {
			return
		}
		w.dispatchDiscordCallback(ctx, req, text)
	case queue.CallbackWebhook:
		w.dispatchWebhookCallback(ctx, req, text)
	default:
		w.logger.Warn().Str("callback_type", string(req.Callback.Type)).Msg("unknown callback type, skipping")
	}
}

func (w *Worker) dispatchDiscordCallback(ctx context.Context, req *queue.QueuedRequest, text string) {
	if req.Metadata.DiscordChannelID == "" || w.discord == nil || !w.discord.Configured() {
		w.logger.Warn().Msg("discord callback requested but channel id or bot token missing")
		return
	}
	for _, part := range chunk.Split(text, discordChunkBytes) {
		if err := w.discord.PostMessage(ctx, req.Metadata.DiscordChannelID, part); err != nil {
			w.logger.Warn().Err(err).Msg("discord callback chunk failed")
		}
	}
}

func (w *Worker) dispatchWebhookCallback(ctx context.Context, req *queue.QueuedRequest, text string) {
	if req.Callback.URL == "" || w.webhook == nil {
		w.logger.Warn().Msg("webhook callback requested but url missing")
		return
	}
	payload := outbound.WebhookPayload{
		Response: text,
		Channel:  req.Channel,
		Sender:   req.Sender,
		Metadata: outbound.WebhookMetadata{
			CallSid:          req.Metadata.CallSid,
			DiscordChannelID: req.Metadata.DiscordChannelID,
			WorkflowID:       req.Metadata.WorkflowID,
		},
	}
	if err := w.webhook.Post(ctx, req.Callback.URL, payload); err != nil {
		w.logger.Warn().Err(err).Msg("webhook callback failed")
	}
}
