package channels

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gamewatch/gamewatch/pkg/bus"
)

// Channel is one messaging platform adapter.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
}

// MessageLengthProvider is implemented by channels with a platform message
// length limit; the manager splits outbound messages accordingly.
type MessageLengthProvider interface {
	MaxMessageLength() int
}

// MentionTagProvider returns the literal text a user types to mention the
// bot on this platform (e.g. "@GameWatchBot"). The lookup may hit the
// platform API and fail; callers degrade to prefix-only matching then.
type MentionTagProvider interface {
	MentionTag(ctx context.Context) (string, error)
}

// RoleHint is what a platform can tell us about a user's standing in a
// chat. IsOpenChannel covers direct conversations and groups where every
// member is an administrator.
type RoleHint struct {
	IsOwner        bool
	IsChannelAdmin bool
	IsOpenChannel  bool
}

// RoleHintProvider queries the platform's admin/ownership APIs for one
// user in one chat. Results are never cached by callers: admin status can
// change between messages.
type RoleHintProvider interface {
	UserRoleHint(ctx context.Context, userID, chatID string) (RoleHint, error)
}

// BaseChannel carries the behavior shared by all adapters: identity, the
// bus reference, the sender allow-list and the running flag.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom []string
	running   atomic.Bool
}

func NewBaseChannel(name string, messageBus *bus.MessageBus, allowFrom []string) *BaseChannel {
	return &BaseChannel{
		name:      name,
		bus:       messageBus,
		allowFrom: allowFrom,
	}
}

func (c *BaseChannel) Name() string { return c.name }

func (c *BaseChannel) IsRunning() bool { return c.running.Load() }

func (c *BaseChannel) setRunning(running bool) { c.running.Store(running) }

// IsAllowed reports whether the sender passes the allow-list. An empty
// list allows everyone. Compound sender IDs of the form "id|username"
// match on either part, so numeric IDs and usernames both work.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowFrom) == 0 {
		return true
	}
	senderParts := splitIdentity(senderID)
	for _, allowed := range c.allowFrom {
		for _, ap := range splitIdentity(allowed) {
			for _, sp := range senderParts {
				if ap != "" && ap == sp {
					return true
				}
			}
		}
	}
	return false
}

func splitIdentity(id string) []string {
	parts := strings.Split(id, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimPrefix(strings.TrimSpace(p), "@"))
	}
	return out
}

// HandleMessage publishes an inbound message after the allow-list check.
// The sender's username from metadata participates in matching, so
// allow-lists may hold IDs or @usernames. Channel posts bypass the
// allow-list: they are not attributable to an individual sender.
func (c *BaseChannel) HandleMessage(author bus.Author, chatID, content string, timestamp time.Time, metadata map[string]string) {
	identity := author.ID
	if username := metadata["username"]; username != "" {
		identity += "|" + username
	}
	if !author.ChannelPost && !c.IsAllowed(identity) {
		return
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	c.bus.PublishInbound(bus.InboundMessage{
		Channel:   c.name,
		Author:    author,
		ChatID:    chatID,
		Content:   content,
		Timestamp: timestamp,
		Metadata:  metadata,
	})
}
