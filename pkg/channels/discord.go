package channels

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/gamewatch/gamewatch/pkg/bus"
	"github.com/gamewatch/gamewatch/pkg/config"
	"github.com/gamewatch/gamewatch/pkg/logger"
	"github.com/gamewatch/gamewatch/pkg/markdown"
)

const discordMaxMessageLength = 2000

type DiscordChannel struct {
	*BaseChannel
	session *discordgo.Session
	config  config.DiscordConfig
	botID   string
}

func init() {
	registerFactory("discord", func(cfg *config.Config, messageBus *bus.MessageBus) (Channel, error) {
		return NewDiscordChannel(cfg.Channels.Discord, messageBus)
	})
}

func NewDiscordChannel(cfg config.DiscordConfig, messageBus *bus.MessageBus) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", messageBus, cfg.AllowFrom),
		session:     session,
		config:      cfg,
	}, nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	logger.InfoC("discord", "Starting Discord bot")

	c.session.AddHandler(c.handleMessage)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	botUser, err := c.session.User("@me")
	if err != nil {
		c.session.Close()
		return fmt.Errorf("failed to get bot user: %w", err)
	}
	c.botID = botUser.ID
	c.setRunning(true)

	logger.InfoCF("discord", "Discord bot connected", map[string]any{
		"username": botUser.Username,
		"user_id":  botUser.ID,
	})

	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	logger.InfoC("discord", "Stopping Discord bot")
	c.setRunning(false)

	if err := c.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

func (c *DiscordChannel) MaxMessageLength() int {
	return discordMaxMessageLength
}

// MentionTag returns the raw mention form Discord puts into message
// content when a user @-mentions the bot.
func (c *DiscordChannel) MentionTag(ctx context.Context) (string, error) {
	if c.botID == "" {
		return "", fmt.Errorf("discord bot identity not available yet")
	}
	return "<@" + c.botID + ">", nil
}

// UserRoleHint checks guild ownership and the administrator permission.
// Direct messages count as open channels.
func (c *DiscordChannel) UserRoleHint(ctx context.Context, userID, chatID string) (RoleHint, error) {
	channel, err := c.session.Channel(chatID)
	if err != nil {
		return RoleHint{}, fmt.Errorf("failed to query channel: %w", err)
	}
	if channel.Type == discordgo.ChannelTypeDM || channel.Type == discordgo.ChannelTypeGroupDM {
		return RoleHint{IsOpenChannel: true}, nil
	}

	guild, err := c.session.Guild(channel.GuildID)
	if err != nil {
		return RoleHint{}, fmt.Errorf("failed to query guild: %w", err)
	}
	if guild.OwnerID == userID {
		return RoleHint{IsOwner: true, IsChannelAdmin: true}, nil
	}

	perms, err := c.session.UserChannelPermissions(userID, chatID)
	if err != nil {
		return RoleHint{}, fmt.Errorf("failed to query permissions: %w", err)
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return RoleHint{IsChannelAdmin: true}, nil
	}

	return RoleHint{}, nil
}

func (c *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord bot not running")
	}
	if msg.ChatID == "" {
		return fmt.Errorf("channel ID is empty")
	}

	content := markdown.ToDiscord(msg.Content)
	if _, err := c.session.ChannelMessageSend(msg.ChatID, content); err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	return nil
}

func (c *DiscordChannel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author != nil && m.Author.ID == c.botID {
		return
	}
	if m.Content == "" {
		return
	}

	author := bus.Author{}
	metadata := map[string]string{}

	// Webhook messages carry no individual author; treat them like
	// channel posts.
	if m.WebhookID != "" || m.Author == nil {
		author.ChannelPost = true
	} else {
		if m.Author.Bot {
			return
		}
		author.ID = m.Author.ID
		if m.Author.Username != "" {
			metadata["username"] = m.Author.Username
		}
	}

	c.HandleMessage(author, m.ChannelID, m.Content, m.Timestamp, metadata)
}
