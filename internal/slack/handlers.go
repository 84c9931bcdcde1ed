package slack

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// MessageForwarder receives inbound Slack messages destined for the shared
// ingress Submitter and tracks which threads bridge-echo has already
// replied in.
type MessageForwarder interface {
	HandleMessage(ctx context.Context, channelID, userID, text, threadTS, messageTS string)
	IsActiveThread(channelID, threadTS string) bool
}

// Handler routes Socket Mode events to the MessageForwarder. Rate limiting
// runs ahead of forwarding so a noisy channel can't monopolize the single
// shared worker.
type Handler struct {
	api        BotAPI
	socket     *socketmode.Client
	logger     zerolog.Logger
	middleware *Middleware
	forwarder  MessageForwarder
}

// NewHandler creates a new event handler.
func NewHandler(logger zerolog.Logger, middleware *Middleware) *Handler {
	return &Handler{
		logger:     logger.With().Str("component", "slack.handler").Logger(),
		middleware: middleware,
	}
}

// SetForwarder sets the message forwarder routing messages into ingress.
func (h *Handler) SetForwarder(f MessageForwarder) {
	h.forwarder = f
}

// SetSocket sets the Socket Mode client for acknowledging events.
func (h *Handler) SetSocket(s *socketmode.Client) {
	h.socket = s
}

// HandleEvent routes Socket Mode events to the appropriate handler.
func (h *Handler) HandleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeEventsAPI:
		h.handleEventsAPI(ctx, evt)
	default:
		h.logger.Debug().Str("type", string(evt.Type)).Msg("unhandled event type")
	}
}

// handleEventsAPI processes Events API payloads (messages, app_mention, etc.).
func (h *Handler) handleEventsAPI(ctx context.Context, evt socketmode.Event) {
	// Acknowledge the event first — Slack requires this within 3 seconds.
	if h.socket != nil && evt.Request != nil {
		h.socket.Ack(*evt.Request)
	}

	eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		h.logger.Warn().Str("type", string(evt.Type)).Msg("failed to cast events_api data")
		return
	}

	switch eventsAPIEvent.Type {
	case slackevents.CallbackEvent:
		h.handleCallbackEvent(ctx, eventsAPIEvent.InnerEvent)
	}
}

func (h *Handler) handleCallbackEvent(ctx context.Context, innerEvent slackevents.EventsAPIInnerEvent) {
	switch ev := innerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		h.logger.Info().
			Str("user", ev.User).
			Str("channel", ev.Channel).
			Msg("app mention received")

		if h.middleware != nil && !h.middleware.CheckRateLimit(ev.User) {
			return
		}
		if h.forwarder != nil {
			h.forwarder.HandleMessage(ctx, ev.Channel, ev.User, ev.Text, ev.ThreadTimeStamp, ev.TimeStamp)
		}

	case *slackevents.MessageEvent:
		// Skip bot messages and message_changed/deleted subtypes.
		if ev.User == "" || ev.SubType != "" {
			return
		}

		if h.middleware != nil && !h.middleware.CheckRateLimit(ev.User) {
			return
		}

		// Handle DMs.
		if ev.ChannelType == "im" {
			h.logger.Info().
				Str("user", ev.User).
				Str("channel", ev.Channel).
				Msg("DM received")

			if h.forwarder != nil {
				h.forwarder.HandleMessage(ctx, ev.Channel, ev.User, ev.Text, ev.ThreadTimeStamp, ev.TimeStamp)
			}
			return
		}

		// Handle thread replies in active threads (no @mention needed).
		if ev.ThreadTimeStamp != "" && h.forwarder != nil && h.forwarder.IsActiveThread(ev.Channel, ev.ThreadTimeStamp) {
			h.logger.Info().
				Str("user", ev.User).
				Str("channel", ev.Channel).
				Str("thread", ev.ThreadTimeStamp).
				Msg("thread reply in active thread")

			h.forwarder.HandleMessage(ctx, ev.Channel, ev.User, ev.Text, ev.ThreadTimeStamp, ev.TimeStamp)
		}

	default:
		h.logger.Debug().
			Str("inner_type", innerEvent.Type).
			Msg("unhandled callback event type")
	}
}
