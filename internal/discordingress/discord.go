// Package discordingress runs the Discord gateway connection that lets
// bridge-echo receive messages directly from a Discord server, in
// addition to the callback path driven by the HTTP /chat endpoint.
package discordingress

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/dnacenta/bridge-echo/internal/chunk"
	"github.com/dnacenta/bridge-echo/internal/ingress"
	"github.com/dnacenta/bridge-echo/internal/outbound"
	"github.com/dnacenta/bridge-echo/internal/queue"
)

const submitTimeout = 5 * time.Minute

// discordMessageBytes is Discord's per-message content ceiling.
const discordMessageBytes = 2000

// Adapter bridges a discordgo session to the shared ingress Submitter.
type Adapter struct {
	session   *discordgo.Session
	submitter *ingress.Submitter
	discord   *outbound.DiscordClient
	logger    zerolog.Logger
}

// New constructs an Adapter authenticated as a bot with token. Returns an
// error only if the discordgo session itself fails to construct; the
// gateway connection is opened by Run.
func New(token string, submitter *ingress.Submitter, discord *outbound.DiscordClient, logger zerolog.Logger) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages

	a := &Adapter{
		session:   session,
		submitter: submitter,
		discord:   discord,
		logger:    logger.With().Str("component", "discordingress").Logger(),
	}
	session.AddHandler(a.onMessageCreate)
	return a, nil
}

// Run opens the gateway connection and blocks until ctx is canceled.
func (a *Adapter) Run(ctx context.Context) error {
	if err := a.session.Open(); err != nil {
		return err
	}
	defer a.session.Close()

	<-ctx.Done()
	return nil
}

func (a *Adapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	text := stripBotMention(m.Content, s.State.User)
	if strings.TrimSpace(text) == "" {
		return
	}

	req := queue.Request{
		Message: text,
		Channel: "discord",
		Sender:  m.Author.ID,
		Metadata: queue.Metadata{
			DiscordChannelID: m.ChannelID,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	resp, err := a.submitter.Submit(ctx, req)
	if err != nil {
		a.logger.Warn().Err(err).Str("sender", m.Author.ID).Msg("discord message dropped")
		return
	}

	if a.discord == nil || !a.discord.Configured() {
		a.logger.Warn().Msg("discord reply dropped: outbound client not configured")
		return
	}
	for _, part := range chunk.Split(resp, discordMessageBytes) {
		if err := a.discord.PostMessage(context.Background(), m.ChannelID, part); err != nil {
			a.logger.Warn().Err(err).Msg("discord reply chunk failed")
		}
	}
}

func stripBotMention(content string, botUser *discordgo.User) string {
	if botUser == nil {
		return strings.TrimSpace(content)
	}
	mention := "<@" + botUser.ID + ">"
	mentionNick := "<@!" + botUser.ID + ">"
	content = strings.ReplaceAll(content, mention, "")
	content = strings.ReplaceAll(content, mentionNick, "")
	return strings.TrimSpace(content)
}
