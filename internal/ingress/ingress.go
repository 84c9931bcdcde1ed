// Package ingress is the single front door every channel adapter (HTTP
// /chat, Slack, Discord) submits requests through: it builds the final
// prompt, decides normal vs. priority enqueue, and blocks for the reply.
package ingress

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dnacenta/bridge-echo/internal/injection"
	"github.com/dnacenta/bridge-echo/internal/metrics"
	"github.com/dnacenta/bridge-echo/internal/prompt"
	"github.com/dnacenta/bridge-echo/internal/queue"
	"github.com/dnacenta/bridge-echo/internal/tracker"
	"github.com/dnacenta/bridge-echo/internal/trust"
)

// ErrEmptyMessage is returned when a request's message is blank.
var ErrEmptyMessage = errors.New("ingress: message is required")

// Submitter wraps the queue/tracker/detector wiring needed to turn a raw
// Request into a QueuedRequest and wait for its reply.
type Submitter struct {
	deque    *queue.Deque
	tracker  *tracker.Tracker
	detector *injection.Detector
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// New constructs a Submitter.
func New(d *queue.Deque, trk *tracker.Tracker, detector *injection.Detector, m *metrics.Metrics, logger zerolog.Logger) *Submitter {
	return &Submitter{
		deque:    d,
		tracker:  trk,
		detector: detector,
		metrics:  m,
		logger:   logger.With().Str("component", "ingress").Logger(),
	}
}

// Submit enqueues req and blocks until the worker replies or ctx is done.
// A sender with another request already active on a different channel
// gets priority enqueue, so a reply on one channel doesn't starve a
// cross-channel follow-up from the same person.
func (s *Submitter) Submit(ctx context.Context, req queue.Request) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", ErrEmptyMessage
	}
	if req.Channel == "" {
		req.Channel = "discord"
	}
	if req.Sender == "" {
		req.Sender = req.Channel
	}

	level := trust.Classify(req.Channel)
	if level != trust.Trusted && s.detector.Detect(req.Message) {
		s.logger.Warn().Str("channel", req.Channel).Str("sender", req.Sender).Msg("prompt injection pattern detected")
		if s.metrics != nil {
			s.metrics.RecordInjectionDetection(req.Channel)
		}
	}

	built := prompt.BuildWithContext(req.Message, req.Channel, req.Metadata.Context, s.detector)
	qr := queue.NewQueuedRequest(req, built)

	if s.tracker.HasActiveOnOtherChannel(req.Sender, req.Channel) {
		s.deque.SendPriority(qr)
	} else {
		s.deque.Send(qr)
	}

	select {
	case resp := <-qr.Reply:
		return resp, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
