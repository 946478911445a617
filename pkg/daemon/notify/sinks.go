package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/jamesainslie/trophy/pkg/daemon/broadcaster"
	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

// LogSink writes notifications to the component log.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink() *LogSink {
	return &LogSink{logger: logging.Get("notify")}
}

// Notify implements Sink.
func (s *LogSink) Notify(_ context.Context, n achievement.Notification) error {
	args := []interface{}{"title", n.Title, "body", n.Body, "silent", n.Silent}
	if n.Game != nil {
		args = append(args, "game", n.Game.String(), "progress", fmt.Sprintf("%d/%d", n.Unlocked, n.Total))
	}
	s.logger.Info("achievement notification", args...)
	return nil
}

// BroadcastSink forwards notifications to live event subscribers.
type BroadcastSink struct {
	b *broadcaster.Broadcaster
}

// NewBroadcastSink creates a BroadcastSink.
func NewBroadcastSink(b *broadcaster.Broadcaster) *BroadcastSink {
	return &BroadcastSink{b: b}
}

// Notify implements Sink.
func (s *BroadcastSink) Notify(_ context.Context, n achievement.Notification) error {
	s.b.PublishNotification(n)
	return nil
}

// ErrDiscordNotConfigured is returned by a DiscordSink without a session
// or channel.
var ErrDiscordNotConfigured = errors.New("discord sink not configured")

// DiscordSink posts notifications to a Discord channel.
type DiscordSink struct {
	session   *discordgo.Session
	channelID string
}

// NewDiscordSink creates a sink for an existing session.
func NewDiscordSink(session *discordgo.Session, channelID string) *DiscordSink {
	return &DiscordSink{session: session, channelID: channelID}
}

// DialDiscord creates a bot session from a token. The REST API is used
// directly so no gateway connection is opened.
func DialDiscord(token, channelID string) (*DiscordSink, error) {
	if token == "" || channelID == "" {
		return nil, ErrDiscordNotConfigured
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	return NewDiscordSink(session, channelID), nil
}

// Notify implements Sink.
func (s *DiscordSink) Notify(_ context.Context, n achievement.Notification) error {
	if s.session == nil || s.channelID == "" {
		return ErrDiscordNotConfigured
	}

	if _, err := s.session.ChannelMessageSendEmbed(s.channelID, discordEmbed(n)); err != nil {
		return fmt.Errorf("sending discord message: %w", err)
	}
	return nil
}

func discordEmbed(n achievement.Notification) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "🏆 " + n.Title,
		Description: n.Body,
	}
	if n.Icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: n.Icon}
	}
	if n.Total > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d/%d unlocked (%.0f%%)", n.Unlocked, n.Total, n.Progress()*100),
		}
	}
	return embed
}
