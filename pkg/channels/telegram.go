package channels

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/gamewatch/gamewatch/pkg/bus"
	"github.com/gamewatch/gamewatch/pkg/config"
	"github.com/gamewatch/gamewatch/pkg/logger"
	"github.com/gamewatch/gamewatch/pkg/markdown"
)

const telegramMaxMessageLength = 4096

type TelegramChannel struct {
	*BaseChannel
	bot    *telego.Bot
	config config.TelegramConfig
}

func init() {
	registerFactory("telegram", func(cfg *config.Config, messageBus *bus.MessageBus) (Channel, error) {
		return NewTelegramChannel(cfg.Channels.Telegram, messageBus)
	})
}

func NewTelegramChannel(cfg config.TelegramConfig, messageBus *bus.MessageBus) (*TelegramChannel, error) {
	var opts []telego.BotOption

	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			},
		}))
	}

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", messageBus, cfg.AllowFrom),
		bot:         bot,
		config:      cfg,
	}, nil
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	logger.InfoC("telegram", "Starting Telegram bot (polling mode)")

	updates, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: 30,
	})
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	c.setRunning(true)
	logger.InfoCF("telegram", "Telegram bot connected", map[string]any{
		"username": c.bot.Username(),
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					logger.InfoC("telegram", "Updates channel closed")
					return
				}
				switch {
				case update.Message != nil:
					c.handleMessage(update.Message, false)
				case update.ChannelPost != nil:
					c.handleMessage(update.ChannelPost, true)
				}
			}
		}
	}()

	return nil
}

func (c *TelegramChannel) Stop(ctx context.Context) error {
	logger.InfoC("telegram", "Stopping Telegram bot")
	c.setRunning(false)
	return nil
}

func (c *TelegramChannel) MaxMessageLength() int {
	return telegramMaxMessageLength
}

// MentionTag returns the "@username" form users type to address the bot.
func (c *TelegramChannel) MentionTag(ctx context.Context) (string, error) {
	username := c.bot.Username()
	if username == "" {
		me, err := c.bot.GetMe(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to fetch bot identity: %w", err)
		}
		username = me.Username
	}
	return "@" + username, nil
}

// UserRoleHint consults the chat type and the member status. Private chats
// count as open channels; "creator" and "administrator" statuses map to
// owner/admin hints.
func (c *TelegramChannel) UserRoleHint(ctx context.Context, userID, chatID string) (RoleHint, error) {
	chatNum, err := parseTelegramChatID(chatID)
	if err != nil {
		return RoleHint{}, fmt.Errorf("invalid chat ID: %w", err)
	}

	chat, err := c.bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.ID(chatNum)})
	if err != nil {
		return RoleHint{}, fmt.Errorf("failed to query chat: %w", err)
	}
	if chat.Type == telego.ChatTypePrivate {
		return RoleHint{IsOpenChannel: true}, nil
	}

	userNum, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return RoleHint{}, fmt.Errorf("invalid user ID: %w", err)
	}

	member, err := c.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(chatNum),
		UserID: userNum,
	})
	if err != nil {
		return RoleHint{}, fmt.Errorf("failed to query chat member: %w", err)
	}

	switch member.MemberStatus() {
	case telego.MemberStatusCreator:
		return RoleHint{IsOwner: true, IsChannelAdmin: true}, nil
	case telego.MemberStatusAdministrator:
		return RoleHint{IsChannelAdmin: true}, nil
	default:
		return RoleHint{}, nil
	}
}

func (c *TelegramChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("telegram bot not running")
	}

	chatID, err := parseTelegramChatID(msg.ChatID)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	content := markdown.ToTelegram(msg.Content)
	tgMsg := tu.Message(tu.ID(chatID), content)
	tgMsg.ParseMode = telego.ModeMarkdown

	if _, err := c.bot.SendMessage(ctx, tgMsg); err != nil {
		logger.WarnCF("telegram", "Markdown parse failed, falling back to plain text", map[string]any{
			"error": err.Error(),
		})
		plainMsg := tu.Message(tu.ID(chatID), msg.Content)
		_, fallbackErr := c.bot.SendMessage(ctx, plainMsg)
		return fallbackErr
	}

	return nil
}

func (c *TelegramChannel) handleMessage(message *telego.Message, channelPost bool) {
	if message.Text == "" {
		return
	}

	author := bus.Author{ChannelPost: channelPost}
	metadata := map[string]string{"chat_type": message.Chat.Type}

	if !channelPost {
		user := message.From
		if user == nil {
			return
		}
		author.ID = strconv.FormatInt(user.ID, 10)
		if user.Username != "" {
			metadata["username"] = user.Username
		}
	}

	c.HandleMessage(
		author,
		strconv.FormatInt(message.Chat.ID, 10),
		message.Text,
		time.Unix(message.Date, 0),
		metadata,
	)
}

func parseTelegramChatID(chatID string) (int64, error) {
	return strconv.ParseInt(chatID, 10, 64)
}
