package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/gamewatch/gamewatch/pkg/logger"
	"github.com/gamewatch/gamewatch/pkg/store"
)

const maxPrefixLength = 8

// BuiltinCommands returns the bot's command set. Order matters: the first
// matching command wins, so more specific triggers come before catch-all
// ones.
func BuiltinCommands() []*Command {
	return []*Command{
		{
			Label:        "help",
			Description:  "list the commands available to you",
			TriggerLabel: "help",
			Trigger:      `help`,
			RequiredRole: RoleUser,
			Handler:      handleHelp,
		},
		{
			Label:        "about",
			Description:  "what this bot does",
			TriggerLabel: "about",
			Trigger:      `about`,
			RequiredRole: RoleUser,
			NoPrefix:     true,
			Handler:      handleAbout,
		},
		{
			Label:        "games",
			Description:  "list the games you can subscribe to",
			TriggerLabel: "games",
			Trigger:      `games`,
			RequiredRole: RoleUser,
			Handler:      handleGames,
		},
		{
			Label:        "subscribe",
			Description:  "subscribe this channel to update feeds, e.g. `subscribe factorio, rimworld`",
			TriggerLabel: "subscribe <games>",
			Trigger:      `subscribe\s+(?P<aliases>.+)`,
			RequiredRole: RoleUser,
			Handler:      handleSubscribe,
		},
		{
			Label:        "unsubscribe",
			Description:  "unsubscribe this channel from update feeds",
			TriggerLabel: "unsubscribe <games>",
			Trigger:      `unsubscribe\s+(?P<aliases>.+)`,
			RequiredRole: RoleUser,
			Handler:      handleUnsubscribe,
		},
		{
			Label:        "prefix",
			Description:  "change this channel's command prefix, or `prefix reset`",
			TriggerLabel: "prefix <new>",
			Trigger:      `prefix\s+(?P<newPrefix>\S+)`,
			RequiredRole: RoleAdmin,
			Handler:      handlePrefix,
		},
		{
			Label:        "notifysubs",
			Description:  "send a message to every channel subscribed to a game",
			TriggerLabel: "notifysubs(<game>) <message>",
			Trigger:      `notifysubs\s*\(\s*(?P<alias>[^)]+?)\s*\)\s+(?P<msg>.+)`,
			RequiredRole: RoleAdmin,
			Handler:      handleNotifySubs,
		},
		{
			Label:        "notifyall",
			Description:  "send a message to every known channel",
			TriggerLabel: "notifyall <message>",
			Trigger:      `notifyall\s+(?P<msg>.+)`,
			RequiredRole: RoleOwner,
			Handler:      handleNotifyAll,
		},
	}
}

func handleHelp(ctx context.Context, env *Env, req Request) error {
	return req.Reply(env.Registry.RenderHelp(req.ChannelCtx, req.Role))
}

func handleAbout(ctx context.Context, env *Env, req Request) error {
	return req.Reply(fmt.Sprintf(
		"I am %s. I watch game update feeds and post news into subscribed channels. Send `%shelp` to see what I can do.",
		env.BotName, req.ChannelCtx.Prefix))
}

func handleGames(ctx context.Context, env *Env, req Request) error {
	if env.Catalog == nil || len(env.Catalog.Games()) == 0 {
		return req.Reply("No game catalog is loaded right now.")
	}

	var b strings.Builder
	b.WriteString("Available games:\n")
	for _, g := range env.Catalog.Games() {
		fmt.Fprintf(&b, "- **%s**", g.Label)
		if len(g.Aliases) > 0 {
			fmt.Fprintf(&b, " (also: %s)", strings.Join(g.Aliases, ", "))
		}
		b.WriteString("\n")
	}
	return req.Reply(strings.TrimRight(b.String(), "\n"))
}

func handleSubscribe(ctx context.Context, env *Env, req Request) error {
	aliases := req.Captures.List("aliases")
	if len(aliases) == 0 {
		return req.Reply("Tell me which games to subscribe to, e.g. `subscribe factorio`.")
	}
	if env.Catalog == nil {
		return req.Reply("No game catalog is loaded right now.")
	}

	var lines []string
	for _, alias := range aliases {
		game, ok := env.Catalog.Resolve(alias)
		if !ok {
			lines = append(lines, fmt.Sprintf("I don't know %q. Send `%sgames` for the list.", alias, req.ChannelCtx.Prefix))
			continue
		}
		outcome, err := env.Store.Subscribe(req.ChannelKey, game.Name)
		if err != nil {
			logger.ErrorCF("commands", "Failed to persist subscription", map[string]any{
				"channel": req.ChannelKey,
				"game":    game.Name,
				"error":   err.Error(),
			})
			lines = append(lines, fmt.Sprintf("Could not save the %s subscription, try again later.", game.Label))
			continue
		}
		switch outcome {
		case store.OutcomeNewlySubscribed:
			lines = append(lines, fmt.Sprintf("Subscribed to **%s** updates.", game.Label))
		case store.OutcomeAlreadySubscribed:
			lines = append(lines, fmt.Sprintf("This channel is already subscribed to **%s**.", game.Label))
		}
	}
	return req.Reply(strings.Join(lines, "\n"))
}

func handleUnsubscribe(ctx context.Context, env *Env, req Request) error {
	aliases := req.Captures.List("aliases")
	if len(aliases) == 0 {
		return req.Reply("Tell me which games to unsubscribe from, e.g. `unsubscribe factorio`.")
	}
	if env.Catalog == nil {
		return req.Reply("No game catalog is loaded right now.")
	}

	var lines []string
	for _, alias := range aliases {
		game, ok := env.Catalog.Resolve(alias)
		if !ok {
			lines = append(lines, fmt.Sprintf("I don't know %q. Send `%sgames` for the list.", alias, req.ChannelCtx.Prefix))
			continue
		}
		outcome, err := env.Store.Unsubscribe(req.ChannelKey, game.Name)
		if err != nil {
			logger.ErrorCF("commands", "Failed to persist unsubscription", map[string]any{
				"channel": req.ChannelKey,
				"game":    game.Name,
				"error":   err.Error(),
			})
			lines = append(lines, fmt.Sprintf("Could not remove the %s subscription, try again later.", game.Label))
			continue
		}
		switch outcome {
		case store.OutcomeUnsubscribed:
			lines = append(lines, fmt.Sprintf("Unsubscribed from **%s** updates.", game.Label))
		case store.OutcomeNeverSubscribed:
			lines = append(lines, fmt.Sprintf("This channel was not subscribed to **%s**.", game.Label))
		}
	}
	return req.Reply(strings.Join(lines, "\n"))
}

func handlePrefix(ctx context.Context, env *Env, req Request) error {
	newPrefix := req.Captures.Get("newPrefix")

	if strings.EqualFold(newPrefix, "reset") {
		if err := env.Store.ResetPrefix(req.ChannelKey); err != nil {
			return fmt.Errorf("failed to reset prefix: %w", err)
		}
		return req.Reply(fmt.Sprintf("Prefix reset to the default `%s`.", env.DefaultPrefix))
	}

	if len([]rune(newPrefix)) > maxPrefixLength {
		return req.Reply(fmt.Sprintf("That prefix is too long; keep it under %d characters.", maxPrefixLength+1))
	}
	if err := env.Store.SetPrefix(req.ChannelKey, newPrefix); err != nil {
		return fmt.Errorf("failed to set prefix: %w", err)
	}
	return req.Reply(fmt.Sprintf("Prefix for this channel is now `%s`. Use `%sprefix reset` to go back to `%s`.",
		newPrefix, newPrefix, env.DefaultPrefix))
}

func handleNotifySubs(ctx context.Context, env *Env, req Request) error {
	if env.Catalog == nil {
		return req.Reply("No game catalog is loaded right now.")
	}
	alias := req.Captures.Get("alias")
	game, ok := env.Catalog.Resolve(alias)
	if !ok {
		return req.Reply(fmt.Sprintf("I don't know %q. Send `%sgames` for the list.", alias, req.ChannelCtx.Prefix))
	}

	text := req.Captures.Get("msg")
	sent := broadcast(ctx, env, env.Store.SubscribersOf(game.Name), text)
	return req.Reply(fmt.Sprintf("Sent to %d channel(s) subscribed to **%s**.", sent, game.Label))
}

func handleNotifyAll(ctx context.Context, env *Env, req Request) error {
	text := req.Captures.Get("msg")
	sent := broadcast(ctx, env, env.Store.All(), text)
	return req.Reply(fmt.Sprintf("Sent to %d channel(s).", sent))
}

// broadcast fans a message out to the given channel records and returns
// how many sends were queued. Per-channel failures are logged and skipped.
func broadcast(ctx context.Context, env *Env, records []store.Record, text string) int {
	sent := 0
	for _, rec := range records {
		channel, chatID, ok := strings.Cut(rec.ChannelKey, ":")
		if !ok {
			logger.WarnCF("commands", "Malformed channel key in store", map[string]any{
				"channel_key": rec.ChannelKey,
			})
			continue
		}
		if err := env.Sender.SendToChannel(ctx, channel, chatID, text); err != nil {
			logger.ErrorCF("commands", "Broadcast send failed", map[string]any{
				"channel_key": rec.ChannelKey,
				"error":       err.Error(),
			})
			continue
		}
		sent++
	}
	return sent
}
