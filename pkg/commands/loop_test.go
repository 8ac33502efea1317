package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gamewatch/gamewatch/pkg/bus"
	"github.com/gamewatch/gamewatch/pkg/channels"
)

type emptyDirectory struct{}

func (emptyDirectory) GetChannel(name string) (channels.Channel, bool) { return nil, false }

func waitForSends(t *testing.T, sender *recordingSender, n int) []sentMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sender.mu.Lock()
		sends := append([]sentMessage(nil), sender.sends...)
		sender.mu.Unlock()
		if len(sends) >= n {
			return sends
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d sends", n)
	return nil
}

func TestLoopDispatchesMatchedCommand(t *testing.T) {
	env, sender := testEnv(t)
	messageBus := bus.NewMessageBus()
	defer messageBus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop(messageBus, env, emptyDirectory{})
	go loop.Run(ctx)

	messageBus.PublishInbound(bus.InboundMessage{
		Channel: "telegram",
		Author:  bus.Author{ID: "42"},
		ChatID:  "100",
		Content: "/subscribe factorio",
	})

	sends := waitForSends(t, sender, 1)
	require.Equal(t, "telegram", sends[0].Channel)
	require.Equal(t, "100", sends[0].ChatID)
	require.Contains(t, sends[0].Content, "Subscribed to **Factorio**")

	rec, ok := env.Store.Get("telegram:100")
	require.True(t, ok)
	require.Equal(t, []string{"factorio"}, rec.GameSubs)
}

func TestLoopRepliesToUnknownCommand(t *testing.T) {
	env, sender := testEnv(t)
	messageBus := bus.NewMessageBus()
	defer messageBus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop(messageBus, env, emptyDirectory{})
	go loop.Run(ctx)

	messageBus.PublishInbound(bus.InboundMessage{
		Channel: "telegram",
		Author:  bus.Author{ID: "42"},
		ChatID:  "100",
		Content: "/frobnicate now",
	})

	sends := waitForSends(t, sender, 1)
	require.Contains(t, sends[0].Content, "Unknown command")
	require.Contains(t, sends[0].Content, "/help")
}

func TestLoopRepliesToBareAddress(t *testing.T) {
	env, sender := testEnv(t)
	messageBus := bus.NewMessageBus()
	defer messageBus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop(messageBus, env, emptyDirectory{})
	go loop.Run(ctx)

	// A lone prefix addresses the bot without naming a command; it still
	// gets the help hint instead of silence.
	messageBus.PublishInbound(bus.InboundMessage{
		Channel: "telegram",
		Author:  bus.Author{ID: "42"},
		ChatID:  "100",
		Content: "/",
	})

	sends := waitForSends(t, sender, 1)
	require.Contains(t, sends[0].Content, "Unknown command")
	require.Contains(t, sends[0].Content, "/help")
}

func TestLoopIgnoresChatter(t *testing.T) {
	env, sender := testEnv(t)
	messageBus := bus.NewMessageBus()
	defer messageBus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop(messageBus, env, emptyDirectory{})
	go loop.Run(ctx)

	messageBus.PublishInbound(bus.InboundMessage{
		Channel: "telegram",
		Author:  bus.Author{ID: "42"},
		ChatID:  "100",
		Content: "anyone up for a game tonight?",
	})

	// Give the loop a moment; nothing may come out.
	time.Sleep(100 * time.Millisecond)
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sends) != 0 {
		t.Fatalf("chatter produced %d replies: %v", len(sender.sends), sender.sends)
	}
}

func TestLoopUsesStoredPrefix(t *testing.T) {
	env, sender := testEnv(t)
	require.NoError(t, env.Store.SetPrefix("telegram:100", "!"))

	messageBus := bus.NewMessageBus()
	defer messageBus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop(messageBus, env, emptyDirectory{})
	go loop.Run(ctx)

	messageBus.PublishInbound(bus.InboundMessage{
		Channel: "telegram",
		Author:  bus.Author{ID: "42"},
		ChatID:  "100",
		Content: "!help",
	})

	sends := waitForSends(t, sender, 1)
	require.True(t, strings.Contains(sends[0].Content, "`!help`"), "help should render the stored prefix: %q", sends[0].Content)
}

func TestLoopGatesAdminCommands(t *testing.T) {
	env, sender := testEnv(t)
	messageBus := bus.NewMessageBus()
	defer messageBus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop(messageBus, env, emptyDirectory{})
	go loop.Run(ctx)

	// No hint provider, not a configured owner: plain user.
	messageBus.PublishInbound(bus.InboundMessage{
		Channel: "telegram",
		Author:  bus.Author{ID: "42"},
		ChatID:  "100",
		Content: "/prefix !",
	})

	sends := waitForSends(t, sender, 1)
	require.Contains(t, sends[0].Content, "admin")
	require.Equal(t, "/", env.Store.Prefix("telegram:100", "/"), "prefix must not change")

	// A channel post is treated as an admin action.
	messageBus.PublishInbound(bus.InboundMessage{
		Channel: "telegram",
		Author:  bus.Author{ChannelPost: true},
		ChatID:  "100",
		Content: "/prefix !",
	})

	waitForSends(t, sender, 2)
	require.Equal(t, "!", env.Store.Prefix("telegram:100", "/"))
}
