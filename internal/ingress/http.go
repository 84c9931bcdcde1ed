package ingress

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/dnacenta/bridge-echo/internal/health"
	"github.com/dnacenta/bridge-echo/internal/metrics"
	"github.com/dnacenta/bridge-echo/internal/queue"
	"github.com/dnacenta/bridge-echo/internal/requestid"
	"github.com/dnacenta/bridge-echo/internal/tracker"
	"github.com/dnacenta/bridge-echo/internal/voice"
)

// requestTimeout bounds how long an HTTP caller waits for the worker's
// reply before receiving the dropped-request response.
const requestTimeout = 5 * time.Minute

// Server builds the Fiber app exposing bridge-echo's HTTP surface.
type Server struct {
	submitter *Submitter
	tracker   *tracker.Tracker
	voice     *voice.Registry
	health    *health.Checker
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewServer constructs a Server.
func NewServer(submitter *Submitter, trk *tracker.Tracker, voiceReg *voice.Registry, checker *health.Checker, m *metrics.Metrics, logger zerolog.Logger) *Server {
	return &Server{
		submitter: submitter,
		tracker:   trk,
		voice:     voiceReg,
		health:    checker,
		metrics:   m,
		logger:    logger.With().Str("component", "http").Logger(),
	}
}

// chatRequest is the POST /chat body.
type chatRequest struct {
	Message  string        `json:"message"`
	Channel  string        `json:"channel"`
	Sender   string        `json:"sender"`
	Metadata chatMetadata  `json:"metadata"`
	Callback *chatCallback `json:"callback"`
}

type chatMetadata struct {
	CallSid          string `json:"call_sid"`
	DiscordChannelID string `json:"discord_channel_id"`
	WorkflowID       string `json:"workflow_id"`
	Context          string `json:"context"`
}

type chatCallback struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type sessionStartedRequest struct {
	CallSid   string `json:"call_sid"`
	Sender    string `json:"sender"`
	Transport string `json:"transport"`
}

type callEndedRequest struct {
	CallSid string `json:"call_sid"`
}

// App constructs the routed Fiber application. It does not call Listen;
// that is the caller's (cmd/bridgeecho's) responsibility.
func (s *Server) App(metricsPath string) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(func(c *fiber.Ctx) error {
		ctx, id := requestid.New(c.UserContext())
		c.SetUserContext(ctx)
		c.Set("X-Request-ID", id)
		return c.Next()
	})

	app.Post("/chat", s.handleChat)
	app.Post("/session-started", s.handleSessionStarted)
	app.Post("/call-ended", s.handleCallEnded)
	app.Get("/api/status", s.handleStatus)
	app.Get("/health", s.handleHealth)
	app.Get("/healthz", adaptor.HTTPHandlerFunc(health.LivenessHandler()))
	if s.health != nil {
		app.Get("/readyz", adaptor.HTTPHandlerFunc(s.health.ReadinessHandler()))
	}

	if s.metrics != nil {
		app.Get(metricsPath, adaptor.HTTPHandler(s.metrics.Handler()))
	}

	return app
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var body chatRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(chatResponse{Response: "Missing message"})
	}
	if body.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(chatResponse{Response: "Missing message"})
	}

	req := queue.Request{
		Message: body.Message,
		Channel: body.Channel,
		Sender:  body.Sender,
		Metadata: queue.Metadata{
			CallSid:          body.Metadata.CallSid,
			DiscordChannelID: body.Metadata.DiscordChannelID,
			WorkflowID:       body.Metadata.WorkflowID,
			Context:          body.Metadata.Context,
		},
	}
	if body.Callback != nil {
		req.Callback = &queue.Callback{Type: queue.CallbackType(body.Callback.Type), URL: body.Callback.URL}
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	resp, err := s.submitter.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			return c.Status(fiber.StatusBadRequest).JSON(chatResponse{Response: "Missing message"})
		}
		s.logger.Warn().Err(err).Msg("chat request dropped")
		return c.Status(fiber.StatusInternalServerError).JSON(chatResponse{Response: "Worker dropped the request"})
	}
	return c.JSON(chatResponse{Response: resp})
}

func (s *Server) handleSessionStarted(c *fiber.Ctx) error {
	var body sessionStartedRequest
	if err := c.BodyParser(&body); err != nil || body.CallSid == "" || body.Sender == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "call_sid and sender are required"})
	}
	s.voice.Touch(body.Sender, body.CallSid)
	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) handleCallEnded(c *fiber.Ctx) error {
	var body callEndedRequest
	if err := c.BodyParser(&body); err != nil || body.CallSid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "call_sid is required"})
	}
	s.voice.Remove(body.CallSid)
	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"active":    s.tracker.ActiveSnapshot(),
		"completed": s.tracker.CompletedSnapshot(),
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if s.health == nil {
		return c.SendStatus(fiber.StatusOK)
	}
	if !s.health.IsReady(c.UserContext()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not_ready"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
