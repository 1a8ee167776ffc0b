package notify

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// ChannelSender is the chat-platform surface the dispatcher needs.
type ChannelSender interface {
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) error
}

// Dispatcher sends formatted notifications to a channel. A failed send is
// reported to the caller and never panics or aborts anything beyond the one
// notification; the sweep engine decides what a failure means for the rest of
// the batch.
type Dispatcher struct {
	sender ChannelSender
}

// NewDispatcher creates a dispatcher on top of a chat client.
func NewDispatcher(sender ChannelSender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Deliver sends one embed to the channel.
func (d *Dispatcher) Deliver(channelID string, embed *discordgo.MessageEmbed) error {
	if err := d.sender.SendEmbed(channelID, embed); err != nil {
		logrus.Errorf("Failed to deliver notification to channel %s: %v", channelID, err)
		return fmt.Errorf("delivery to channel %s failed: %w", channelID, err)
	}
	return nil
}
