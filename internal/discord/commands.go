package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"tweetwatch/internal/models"
	"tweetwatch/internal/state"
	"tweetwatch/internal/twitter"
)

// IntervalSetter lets config changes reschedule the sweep cadence.
type IntervalSetter interface {
	SetInterval(time.Duration)
}

// Commands implements the admin slash commands. Every handler returns a short
// user-visible confirmation or error string; all replies are ephemeral.
type Commands struct {
	store  *state.Store
	social twitter.AccountAPI
	sched  IntervalSetter
}

// NewCommands creates the command handlers.
func NewCommands(store *state.Store, social twitter.AccountAPI, sched IntervalSetter) *Commands {
	return &Commands{
		store:  store,
		social: social,
		sched:  sched,
	}
}

var adminOnly int64 = discordgo.PermissionAdministrator

var commandDefinitions = []*discordgo.ApplicationCommand{
	{
		Name:                     "config-account",
		Description:              "Set the X account used for polling timelines",
		DefaultMemberPermissions: &adminOnly,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "username",
				Description: "X account username",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "password",
				Description: "X account password",
				Required:    true,
			},
		},
	},
	{
		Name:                     "config-settings",
		Description:              "Set the notification channel and polling interval for this server",
		DefaultMemberPermissions: &adminOnly,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "channel",
				Description: "Channel to post notifications in",
				ChannelTypes: []discordgo.ChannelType{
					discordgo.ChannelTypeGuildText,
				},
				Required: true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "interval",
				Description: "Polling interval in minutes (5-60)",
				MinValue:    &minIntervalOption,
				MaxValue:    models.IntervalMax,
				Required:    true,
			},
		},
	},
	{
		Name:                     "follow",
		Description:              "Follow an X account in this server",
		DefaultMemberPermissions: &adminOnly,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "account",
				Description: "@handle or numeric account ID",
				Required:    true,
			},
		},
	},
	{
		Name:                     "unfollow",
		Description:              "Stop following an X account in this server",
		DefaultMemberPermissions: &adminOnly,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "account",
				Description: "@handle or numeric account ID",
				Required:    true,
			},
		},
	},
}

var minIntervalOption = float64(models.IntervalMin)

// Register installs the slash commands and their interaction handler.
func (c *Commands) Register(session *Session) error {
	session.s.AddHandler(c.handleInteraction)

	appID := session.s.State.User.ID
	for _, cmd := range commandDefinitions {
		if _, err := session.s.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
	}

	logrus.Infof("Registered %d slash commands", len(commandDefinitions))
	return nil
}

func (c *Commands) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	logrus.Infof("Command /%s invoked in guild %s", data.Name, i.GuildID)

	if !isAdministrator(i) {
		reply(s, i, "This command requires administrator permissions.")
		return
	}

	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		opts[opt.Name] = opt
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var message string
	switch data.Name {
	case "config-account":
		message = c.configAccount(ctx, opts["username"].StringValue(), opts["password"].StringValue())
	case "config-settings":
		channel := opts["channel"].ChannelValue(nil)
		message = c.configSettings(i.GuildID, channel.ID, int(opts["interval"].IntValue()))
	case "follow":
		message = c.follow(ctx, i.GuildID, opts["account"].StringValue())
	case "unfollow":
		message = c.unfollow(ctx, i.GuildID, opts["account"].StringValue())
	default:
		return
	}

	reply(s, i, message)
}

func (c *Commands) configAccount(ctx context.Context, username, password string) string {
	if err := c.social.Login(ctx, username, password); err != nil {
		logrus.Errorf("Failed to configure X account: %v", err)
		return "An error occurred while configuring the X account."
	}
	return "X account configuration updated."
}

func (c *Commands) configSettings(guildID, channelID string, intervalMinutes int) string {
	if err := c.store.SetSettings(guildID, channelID, intervalMinutes); err != nil {
		if errors.Is(err, state.ErrIntervalOutOfRange) {
			return fmt.Sprintf("The interval must be between %d and %d minutes.",
				models.IntervalMin, models.IntervalMax)
		}
		logrus.Errorf("Failed to update settings for guild %s: %v", guildID, err)
		return "An error occurred while updating the settings."
	}

	c.persist()
	c.sched.SetInterval(c.store.MinInterval())

	return fmt.Sprintf("Settings updated. New posts will be sent to <#%s> every %d minutes.",
		channelID, intervalMinutes)
}

func (c *Commands) follow(ctx context.Context, guildID, ref string) string {
	account, err := c.social.ResolveAccount(ctx, ref)
	if err != nil {
		if errors.Is(err, twitter.ErrNotFound) {
			return "X account not found."
		}
		logrus.Errorf("Failed to resolve account %q: %v", ref, err)
		return "An error occurred while following the account."
	}

	if err := c.store.Follow(guildID, account.ID); err != nil {
		if errors.Is(err, state.ErrNotConfigured) {
			return "Configure the bot with /config-settings first."
		}
		logrus.Errorf("Failed to follow account %s in guild %s: %v", account.ID, guildID, err)
		return "An error occurred while following the account."
	}

	c.persist()
	return fmt.Sprintf("Now following %s (@%s).", account.DisplayName, account.Handle)
}

func (c *Commands) unfollow(ctx context.Context, guildID, ref string) string {
	accountID := ref
	if account, err := c.social.ResolveAccount(ctx, ref); err == nil {
		accountID = account.ID
	} else if !errors.Is(err, twitter.ErrNotFound) {
		logrus.Errorf("Failed to resolve account %q: %v", ref, err)
		return "An error occurred while unfollowing the account."
	}

	if err := c.store.Unfollow(guildID, accountID); err != nil {
		switch {
		case errors.Is(err, state.ErrNotConfigured):
			return "No configuration found for this server."
		case errors.Is(err, state.ErrNotFollowed):
			return "This account was not followed."
		default:
			logrus.Errorf("Failed to unfollow account %s in guild %s: %v", accountID, guildID, err)
			return "An error occurred while unfollowing the account."
		}
	}

	c.persist()
	return "The account is no longer followed."
}

func (c *Commands) persist() {
	if err := c.store.Save(); err != nil {
		// In-memory state stays authoritative; the post-sweep save retries.
		logrus.Errorf("Failed to persist guild state after command: %v", err)
	}
}

func isAdministrator(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func reply(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logrus.Errorf("Failed to respond to interaction: %v", err)
	}
}
