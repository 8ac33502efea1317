package bus

import "time"

// Author identifies who sent an inbound message. Messages posted as the
// channel itself (e.g. Telegram channel posts, webhook messages) carry no
// individual author; permission resolution switches on ChannelPost instead
// of comparing IDs against a sentinel value.
type Author struct {
	ID          string `json:"id,omitempty"`
	ChannelPost bool   `json:"channel_post,omitempty"`
}

type InboundMessage struct {
	Channel   string            `json:"channel"`
	Author    Author            `json:"author"`
	ChatID    string            `json:"chat_id"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Notification is a structured feed update attached to an outbound message.
// Adapters that support rich rendering (embeds, blocks) use it; the Content
// field always carries a plain-markdown fallback.
type Notification struct {
	Game      string    `json:"game"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Source    string    `json:"source,omitempty"`
	Published time.Time `json:"published,omitempty"`
}

type OutboundMessage struct {
	Channel      string        `json:"channel"`
	ChatID       string        `json:"chat_id"`
	Content      string        `json:"content"`
	Notification *Notification `json:"notification,omitempty"`
}
