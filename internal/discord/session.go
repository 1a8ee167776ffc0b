package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"tweetwatch/internal/monitoring"
)

// ErrChannelNotFound is returned when a configured channel cannot be resolved,
// e.g. it was deleted or the bot lost access.
var ErrChannelNotFound = errors.New("discord: channel not found")

// Session wraps the discordgo session behind the narrow surface the rest of
// the bot consumes.
type Session struct {
	s *discordgo.Session
}

// Ensure Session satisfies the sweep engine's chat-client contract
var _ monitoring.ChatClient = (*Session)(nil)

// NewSession creates a Discord session for the given bot token.
func NewSession(token string) (*Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return &Session{s: s}, nil
}

// Open connects the gateway.
func (s *Session) Open() error {
	if err := s.s.Open(); err != nil {
		return fmt.Errorf("failed to open Discord gateway: %w", err)
	}
	return nil
}

// Close disconnects the gateway.
func (s *Session) Close() error {
	return s.s.Close()
}

// BotUser returns the connected bot account's username.
func (s *Session) BotUser() string {
	if s.s.State != nil && s.s.State.User != nil {
		return s.s.State.User.Username
	}
	return ""
}

// ResolveChannel checks that the channel exists and is visible to the bot.
func (s *Session) ResolveChannel(channelID string) error {
	if _, err := s.s.State.Channel(channelID); err == nil {
		return nil
	}
	if _, err := s.s.Channel(channelID); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrChannelNotFound, channelID, err)
	}
	return nil
}

// SendEmbed posts one embed to a channel.
func (s *Session) SendEmbed(channelID string, embed *discordgo.MessageEmbed) error {
	if _, err := s.s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		return fmt.Errorf("failed to send embed to channel %s: %w", channelID, err)
	}
	return nil
}
