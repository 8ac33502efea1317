package channels

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/gamewatch/gamewatch/pkg/bus"
	"github.com/gamewatch/gamewatch/pkg/config"
	"github.com/gamewatch/gamewatch/pkg/logger"
	"github.com/gamewatch/gamewatch/pkg/markdown"
)

const slackMaxMessageLength = 4000

type SlackChannel struct {
	*BaseChannel
	api    *slack.Client
	socket *socketmode.Client
	config config.SlackConfig
	botID  string
}

func init() {
	registerFactory("slack", func(cfg *config.Config, messageBus *bus.MessageBus) (Channel, error) {
		return NewSlackChannel(cfg.Channels.Slack, messageBus)
	})
}

func NewSlackChannel(cfg config.SlackConfig, messageBus *bus.MessageBus) (*SlackChannel, error) {
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("slack app token is required for socket mode")
	}

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))

	return &SlackChannel{
		BaseChannel: NewBaseChannel("slack", messageBus, cfg.AllowFrom),
		api:         api,
		socket:      socketmode.New(api),
		config:      cfg,
	}, nil
}

func (c *SlackChannel) Start(ctx context.Context) error {
	logger.InfoC("slack", "Starting Slack bot (socket mode)")

	auth, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth test failed: %w", err)
	}
	c.botID = auth.UserID
	c.setRunning(true)

	logger.InfoCF("slack", "Slack bot connected", map[string]any{
		"user":    auth.User,
		"user_id": auth.UserID,
	})

	go func() {
		if err := c.socket.RunContext(ctx); err != nil && ctx.Err() == nil {
			logger.ErrorCF("slack", "Socket mode stopped", map[string]any{
				"error": err.Error(),
			})
		}
	}()
	go c.handleEvents(ctx)

	return nil
}

func (c *SlackChannel) Stop(ctx context.Context) error {
	logger.InfoC("slack", "Stopping Slack bot")
	c.setRunning(false)
	return nil
}

func (c *SlackChannel) MaxMessageLength() int {
	return slackMaxMessageLength
}

// MentionTag returns the raw mention form Slack puts into message text
// when a user @-mentions the bot.
func (c *SlackChannel) MentionTag(ctx context.Context) (string, error) {
	if c.botID == "" {
		return "", fmt.Errorf("slack bot identity not available yet")
	}
	return "<@" + c.botID + ">", nil
}

// UserRoleHint maps Slack workspace admin/owner flags to role hints.
// Direct message conversations count as open channels.
func (c *SlackChannel) UserRoleHint(ctx context.Context, userID, chatID string) (RoleHint, error) {
	conv, err := c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID: chatID,
	})
	if err != nil {
		return RoleHint{}, fmt.Errorf("failed to query conversation: %w", err)
	}
	if conv.IsIM || conv.IsMpIM {
		return RoleHint{IsOpenChannel: true}, nil
	}

	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return RoleHint{}, fmt.Errorf("failed to query user: %w", err)
	}
	switch {
	case user.IsOwner || user.IsPrimaryOwner:
		return RoleHint{IsOwner: true, IsChannelAdmin: true}, nil
	case user.IsAdmin:
		return RoleHint{IsChannelAdmin: true}, nil
	default:
		return RoleHint{}, nil
	}
}

func (c *SlackChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("slack bot not running")
	}

	content := markdown.ToSlack(msg.Content)
	_, _, err := c.api.PostMessageContext(ctx, msg.ChatID,
		slack.MsgOptionText(content, false))
	if err != nil {
		return fmt.Errorf("failed to send slack message: %w", err)
	}
	return nil
}

func (c *SlackChannel) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.socket.Events:
			if !ok {
				return
			}
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			if evt.Request != nil {
				c.socket.Ack(*evt.Request)
			}
			if apiEvent.Type != slackevents.CallbackEvent {
				continue
			}
			if ev, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent); ok {
				c.handleMessage(ev)
			}
		}
	}
}

func (c *SlackChannel) handleMessage(ev *slackevents.MessageEvent) {
	if ev.Text == "" || ev.User == c.botID {
		return
	}
	// Ignore edits, joins and other subtyped events; bot_message is kept
	// as a channel-post style message without an individual author.
	if ev.SubType != "" && ev.SubType != "bot_message" {
		return
	}

	author := bus.Author{}
	if ev.SubType == "bot_message" || ev.User == "" {
		if ev.BotID == c.botID {
			return
		}
		author.ChannelPost = true
	} else {
		author.ID = ev.User
	}

	c.HandleMessage(author, ev.Channel, ev.Text, parseSlackTimestamp(ev.TimeStamp), nil)
}

// parseSlackTimestamp converts Slack's "seconds.micros" message timestamp.
func parseSlackTimestamp(ts string) time.Time {
	f, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
