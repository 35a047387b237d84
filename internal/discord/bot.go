package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/chris/attune/internal/scheduler"
)

const (
	maxMessageLen = 2000
	replyTimeout  = 2 * time.Minute
)

// Sender delivers direct messages over the REST API. It needs no gateway
// connection, so one-shot commands can use it.
type Sender struct {
	session *discordgo.Session
}

func NewSender(token string) (*Sender, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}
	return &Sender{session: s}, nil
}

// SendDM opens (or reuses) the DM channel with userID and posts m. Long text
// is split; buttons go on the last chunk.
func (s *Sender) SendDM(ctx context.Context, userID string, m scheduler.Message) error {
	ch, err := s.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	chunks := splitMessage(m.Text, maxMessageLen)
	for i, chunk := range chunks {
		msg := &discordgo.MessageSend{Content: chunk}
		if i == len(chunks)-1 {
			msg.Components = components(m)
		}
		if _, err := s.session.ChannelMessageSendComplex(ch.ID, msg, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("sending DM: %w", err)
		}
	}
	return nil
}

// components lays out button rows. The custom ID carries the callback token
// and, when known, the day the answer belongs to.
func components(m scheduler.Message) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for _, row := range m.Buttons {
		var buttons []discordgo.MessageComponent
		for _, b := range row {
			id := b.Token
			if m.Date != "" {
				id += ":" + m.Date
			}
			buttons = append(buttons, discordgo.Button{
				Label:    b.Label,
				Style:    discordgo.SecondaryButton,
				CustomID: id,
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	return rows
}

// Bot is a connected Sender that also answers messages and button presses.
type Bot struct {
	*Sender
	handler *Handler
	log     *zap.Logger
}

func NewBot(token string, handler *Handler, log *zap.Logger) (*Bot, error) {
	sender, err := NewSender(token)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	bot := &Bot{Sender: sender, handler: handler, log: log}
	s := sender.session
	s.AddHandler(bot.onMessage)
	s.AddHandler(bot.onInteraction)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening Discord connection: %w", err)
	}

	log.Info("Discord bot connected", zap.String("user", s.State.User.Username))
	return bot, nil
}

func (b *Bot) Close() {
	b.session.Close()
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore own messages
	if m.Author.ID == s.State.User.ID {
		return
	}

	// Only respond to DMs or when mentioned
	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			isMentioned = true
			break
		}
	}

	if !isDM && !isMentioned {
		return
	}

	if isDM {
		// Scheduled messages go to whoever last talked to the bot directly.
		if err := b.handler.db.SetNote(scheduler.NoteDiscordUser, m.Author.ID); err != nil {
			b.log.Warn("saving DM user", zap.Error(err))
		}
	}

	content := stripMention(m.Content, s.State.User.ID)

	// Show typing indicator
	s.ChannelTyping(m.ChannelID)

	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()
	reply := b.handler.HandleText(ctx, m.ChannelID, m.Author.ID, content)
	if reply == "" {
		return
	}

	// Discord has a 2000 char limit; split if needed
	for _, chunk := range splitMessage(reply, maxMessageLen) {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			b.log.Warn("sending reply", zap.Error(err))
			return
		}
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	ack, reflection := b.handler.HandleButton(ctx, i.MessageComponentData().CustomID)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: ack,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.log.Warn("acknowledging button", zap.Error(err))
	}
	if reflection == "" {
		return
	}
	for _, chunk := range splitMessage(reflection, maxMessageLen) {
		if _, err := s.ChannelMessageSend(i.ChannelID, chunk); err != nil {
			b.log.Warn("sending reflection", zap.Error(err))
			return
		}
	}
}
