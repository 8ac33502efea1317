package commands

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/gamewatch/gamewatch/pkg/bus"
	"github.com/gamewatch/gamewatch/pkg/channels"
	"github.com/gamewatch/gamewatch/pkg/logger"
)

// ChannelDirectory exposes the running channel adapters; the channel
// manager implements it. The loop uses it to query per-platform mention
// tags.
type ChannelDirectory interface {
	GetChannel(name string) (channels.Channel, bool)
}

// Loop consumes inbound messages from the bus and dispatches matched
// commands. Each message is handled in its own goroutine so a slow
// platform call never blocks the queue.
type Loop struct {
	bus       *bus.MessageBus
	env       *Env
	directory ChannelDirectory
}

func NewLoop(messageBus *bus.MessageBus, env *Env, directory ChannelDirectory) *Loop {
	return &Loop{
		bus:       messageBus,
		env:       env,
		directory: directory,
	}
}

// Run blocks until ctx is canceled.
func (l *Loop) Run(ctx context.Context) {
	logger.InfoC("commands", "Command loop started")
	for {
		msg, ok := l.bus.ConsumeInbound(ctx)
		if !ok {
			select {
			case <-ctx.Done():
				logger.InfoC("commands", "Command loop stopped")
				return
			default:
				continue
			}
		}
		go l.handle(ctx, msg)
	}
}

func (l *Loop) handle(ctx context.Context, msg bus.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("commands", "Panic while handling message", map[string]any{
				"channel": msg.Channel,
				"chat_id": msg.ChatID,
				"panic":   fmt.Sprint(r),
				"stack":   string(debug.Stack()),
			})
		}
	}()

	channelKey := msg.Channel + ":" + msg.ChatID
	cc := ChannelContext{
		Key:        channelKey,
		Prefix:     l.env.Store.Prefix(channelKey, l.env.DefaultPrefix),
		MentionTag: l.mentionTag(ctx, msg.Channel),
	}

	cmd, caps, matched := l.env.Registry.Match(cc, msg.Content)
	if !matched {
		// Reply whenever the bot was addressed, even by a bare prefix or
		// mention; everything else is ordinary chatter.
		if _, addressed := l.env.Registry.AddressedRest(cc, msg.Content); addressed {
			l.reply(ctx, msg, fmt.Sprintf("Unknown command. Try `%shelp`.", cc.Prefix))
		}
		return
	}

	// Role resolution can hit platform APIs, so it runs only after a
	// command actually matched.
	role := l.env.Resolver.Resolve(ctx, msg.Channel, msg.ChatID, msg.Author)

	req := Request{
		Channel:    msg.Channel,
		ChatID:     msg.ChatID,
		ChannelKey: channelKey,
		ChannelCtx: cc,
		Author:     msg.Author,
		Role:       role,
		Text:       msg.Content,
		Captures:   caps,
		Timestamp:  msg.Timestamp,
		Reply: func(text string) error {
			return l.env.Sender.SendToChannel(ctx, msg.Channel, msg.ChatID, text)
		},
	}
	l.env.Registry.Dispatch(ctx, l.env, cmd, req)
}

// mentionTag queries the adapter's mention tag, degrading to prefix-only
// matching when the adapter cannot report one yet.
func (l *Loop) mentionTag(ctx context.Context, channel string) string {
	ch, ok := l.directory.GetChannel(channel)
	if !ok {
		return ""
	}
	provider, ok := ch.(channels.MentionTagProvider)
	if !ok {
		return ""
	}
	tag, err := provider.MentionTag(ctx)
	if err != nil {
		logger.DebugCF("commands", "Mention tag unavailable", map[string]any{
			"channel": channel,
			"error":   err.Error(),
		})
		return ""
	}
	return tag
}

func (l *Loop) reply(ctx context.Context, msg bus.InboundMessage, text string) {
	if err := l.env.Sender.SendToChannel(ctx, msg.Channel, msg.ChatID, text); err != nil {
		logger.ErrorCF("commands", "Failed to send reply", map[string]any{
			"channel": msg.Channel,
			"chat_id": msg.ChatID,
			"error":   err.Error(),
		})
	}
}
