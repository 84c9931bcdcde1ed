package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dnacenta/bridge-echo/internal/alert"
	"github.com/dnacenta/bridge-echo/internal/assistant"
	"github.com/dnacenta/bridge-echo/internal/bridge"
	"github.com/dnacenta/bridge-echo/internal/config"
	"github.com/dnacenta/bridge-echo/internal/discordingress"
	"github.com/dnacenta/bridge-echo/internal/escalation"
	"github.com/dnacenta/bridge-echo/internal/health"
	"github.com/dnacenta/bridge-echo/internal/ingress"
	"github.com/dnacenta/bridge-echo/internal/injection"
	"github.com/dnacenta/bridge-echo/internal/metrics"
	"github.com/dnacenta/bridge-echo/internal/monitor"
	"github.com/dnacenta/bridge-echo/internal/outbound"
	"github.com/dnacenta/bridge-echo/internal/queue"
	slackpkg "github.com/dnacenta/bridge-echo/internal/slack"
	"github.com/dnacenta/bridge-echo/internal/tracker"
	"github.com/dnacenta/bridge-echo/internal/voice"
	"github.com/dnacenta/bridge-echo/internal/worker"
)

// assistantInvokeTimeout bounds a single Claude CLI invocation. There is
// no per-request cancellation, but an exec'd subprocess still needs a hard
// ceiling so a hung `claude` process can't wedge the worker forever.
const assistantInvokeTimeout = 15 * time.Minute

// workerHeartbeatDegradedAfter/workerHeartbeatDownAfter gate the
// worker_heartbeat health check: a single stuck assistant invocation can
// legitimately hold the worker goroutine for up to assistantInvokeTimeout,
// so the degraded tier fires first as an early warning, and only a stall
// well past any single invocation's ceiling is reported as down.
const (
	workerHeartbeatDegradedAfter = 2 * time.Minute
	workerHeartbeatDownAfter     = assistantInvokeTimeout + time.Minute
)

func main() {
	switch subcommand() {
	case "monitor":
		runMonitor()
	default:
		runServe()
	}
}

func subcommand() string {
	if len(os.Args) < 2 {
		return "serve"
	}
	return os.Args[1]
}

func runMonitor() {
	once := false
	for _, a := range os.Args[2:] {
		if a == "--once" {
			once = true
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3100"
	}
	url := fmt.Sprintf("http://127.0.0.1:%s/api/status", port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !monitor.Run(ctx, url, once) {
		os.Exit(1)
	}
}

func runServe() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	thresholds, err := cfg.AlertThresholds()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid alert thresholds")
	}

	notifier := buildEscalationNotifier(cfg, logger)

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Bool("discord_ingress_enabled", cfg.DiscordIngressEnabled()).
		Bool("alerting_enabled", cfg.AlertingEnabled()).
		Bool("voice_enabled", cfg.VoiceEnabled()).
		Msg("starting bridge-echo")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// --- Core wiring ---
	m := metrics.New()
	trk := tracker.New()
	voiceReg := voice.New(cfg.VoiceSessionTimeout())
	detector := injection.New()
	deque := queue.NewDeque()
	submitter := ingress.New(deque, trk, detector, m, logger)

	runner := assistant.New(cfg.ClaudeBin, cfg.Home, assistantInvokeTimeout, logger)
	discordClient := outbound.NewDiscordClient(cfg.DiscordBotToken)
	voiceInjector := outbound.NewVoiceInjector(cfg.VoiceURL, cfg.VoiceToken)
	webhookClient := outbound.NewWebhookClient()

	checker := health.NewChecker(logger)
	checker.Register("claude_binary", func(ctx context.Context) health.Status {
		if _, err := exec.LookPath(cfg.ClaudeBin); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	w := worker.New(worker.Config{
		Home:        cfg.Home,
		SelfDocPath: cfg.SelfPath,
		SessionTTL:  cfg.SessionTTL(),
	}, deque, trk, voiceReg, runner, discordClient, voiceInjector, webhookClient, m, notifier, logger)

	checker.Register("worker_heartbeat", func(ctx context.Context) health.Status {
		last := w.Heartbeat()
		if last == 0 {
			// Worker hasn't completed a loop iteration yet; treat as ok
			// during startup rather than failing readiness immediately.
			return health.StatusOK
		}
		if deque.Len() == 0 && trk.ActiveCount() == 0 {
			// Nothing queued or in flight: an idle worker stays blocked in
			// Recv and does not refresh its heartbeat, so its age says
			// nothing about the worker's health.
			return health.StatusOK
		}
		age := time.Since(time.Unix(last, 0))
		switch {
		case age > workerHeartbeatDownAfter:
			// Work is waiting or in flight and no recv() iteration has
			// completed in this long: the worker is stuck or has died.
			return health.StatusDown
		case age > workerHeartbeatDegradedAfter:
			return health.StatusDegraded
		default:
			return health.StatusOK
		}
	})

	alertLoop := alert.New(trk, discordClient, cfg.DiscordAlertChannel, thresholds, m, logger)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		alertLoop.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		publishVoiceCacheStats(ctx, voiceReg, m)
	}()

	// --- HTTP ingress ---
	server := ingress.NewServer(submitter, trk, voiceReg, checker, m, logger)
	app := server.App(cfg.MetricsPath)

	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		logger.Info().Str("addr", addr).Msg("HTTP server starting")
		if err := app.Listen(addr); err != nil {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// --- Slack ingress (optional) ---
	if cfg.SlackEnabled() {
		startSlack(ctx, cfg, submitter, m, logger, &wg)
	} else {
		logger.Info().Msg("Slack not configured — running without Slack ingress")
	}

	// --- Discord ingress (optional) ---
	if cfg.DiscordIngressEnabled() {
		adapter, err := discordingress.New(cfg.DiscordAppToken, submitter, discordClient, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to init Discord ingress (non-fatal)")
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := adapter.Run(ctx); err != nil {
					logger.Error().Err(err).Msg("Discord ingress error")
				}
			}()
			logger.Info().Msg("Discord gateway ingress enabled")
		}
	} else {
		logger.Info().Msg("Discord ingress not configured")
	}

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()
	deque.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("timed out waiting for goroutines to exit")
	}
}

func startSlack(ctx context.Context, cfg *config.Config, submitter *ingress.Submitter, m *metrics.Metrics, logger zerolog.Logger, wg *sync.WaitGroup) {
	slackMiddleware := slackpkg.NewMiddleware(logger, 10, time.Minute)
	slackHandler := slackpkg.NewHandler(logger, slackMiddleware)
	slackApp, err := slackpkg.NewApp(cfg.SlackBotToken, cfg.SlackAppToken, cfg.SlackAllowedChannelList(), m, logger, slackHandler)
	if err != nil {
		logger.Error().Err(err).Msg("failed to init Slack app (non-fatal)")
		return
	}

	botUserID := ""
	if authResp, err := slackApp.AuthTest(); err == nil {
		botUserID = authResp.UserID
		logger.Info().Str("bot_user_id", botUserID).Msg("Slack bot identity resolved")
	}

	history := bridge.NewSlackThreadProvider(slackApp, botUserID)
	slackBridge := bridge.New(bridge.Config{
		BotUserID:     botUserID,
		MaxConcurrent: 5,
	}, bridge.NewSlackPoster(slackApp), submitter, history, logger)
	slackHandler.SetForwarder(slackBridge)

	logger.Info().Msg("Slack Socket Mode enabled")
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := slackApp.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Slack Socket Mode error")
		}
	}()
}

// escalationDedupeCooldown bounds how often the same (Source, Title)
// escalation can re-page an operator. The worker's consecutive-failure
// counter resets on every notify attempt, so an oscillating failure/success
// pattern can otherwise cross the escalation threshold again within
// minutes of the last page.
const escalationDedupeCooldown = 15 * time.Minute

// voiceCacheStatsInterval is how often the voice registry's lru.Cache
// counters are republished as Prometheus gauges. The counters themselves
// update as the registry is used (hits, misses and expirations on
// ActiveCallSid lookups, evictions when a Touch finds the cache full); this
// only controls how stale the exported snapshot can be.
const voiceCacheStatsInterval = 30 * time.Second

func publishVoiceCacheStats(ctx context.Context, reg *voice.Registry, m *metrics.Metrics) {
	ticker := time.NewTicker(voiceCacheStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetVoiceCacheStats(reg.CacheStats())
		}
	}
}

func buildEscalationNotifier(cfg *config.Config, logger zerolog.Logger) escalation.Notifier {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logNotifier := escalation.NewLogNotifier(slogger)

	var notifier escalation.Notifier = logNotifier
	if cfg.TelegramEnabled() {
		telegram := escalation.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, slogger)
		notifier = escalation.NewMultiNotifier(telegram, logNotifier)
	}

	return escalation.NewDedupingNotifier(notifier, escalationDedupeCooldown)
}
