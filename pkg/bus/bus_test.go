package bus

import (
	"context"
	"testing"
	"time"
)

func TestMessageBusInboundRoundTrip(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	sent := InboundMessage{
		Channel: "telegram",
		Author:  Author{ID: "42"},
		ChatID:  "100",
		Content: "/help",
	}
	mb.PublishInbound(sent)

	got, ok := mb.ConsumeInbound(context.Background())
	if !ok {
		t.Fatal("expected a message")
	}
	if got.Channel != sent.Channel || got.ChatID != sent.ChatID || got.Content != sent.Content {
		t.Fatalf("got %+v, want %+v", got, sent)
	}
}

func TestMessageBusConsumeHonorsContext(t *testing.T) {
	mb := NewMessageBus()
	defer mb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, ok := mb.ConsumeOutbound(ctx); ok {
		t.Fatal("empty bus should report no message once the context expires")
	}
}

func TestMessageBusPublishAfterCloseIsDropped(t *testing.T) {
	mb := NewMessageBus()
	mb.Close()

	// Must not panic on the closed channel.
	mb.PublishInbound(InboundMessage{Channel: "telegram"})
	mb.PublishOutbound(OutboundMessage{Channel: "telegram"})
	mb.Close() // double close is a no-op
}
