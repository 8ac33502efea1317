package commands

import (
	"context"
	"strings"
	"time"

	"github.com/gamewatch/gamewatch/pkg/bus"
	"github.com/gamewatch/gamewatch/pkg/store"
)

// Captures holds the named groups of a matched trigger, built immediately
// after the match so handlers work with typed accessors instead of raw
// regex state.
type Captures map[string]string

func (c Captures) Get(name string) string {
	return c[name]
}

// List splits a captured comma-separated list into trimmed, non-empty
// items.
func (c Captures) List(name string) []string {
	raw := c[name]
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Request is the transient per-message context handed to handlers. It
// lives for exactly one dispatch cycle.
type Request struct {
	Channel    string // platform name
	ChatID     string
	ChannelKey string // "platform:chatID"
	ChannelCtx ChannelContext
	Author     bus.Author
	Role       Role
	Text       string
	Captures   Captures
	Timestamp  time.Time
	Reply      func(text string) error
}

// Handler executes one matched command. Errors are logged at the dispatch
// boundary, never propagated further.
type Handler func(ctx context.Context, env *Env, req Request) error

// Command is one triggerable unit. Commands are constructed once at
// startup and immutable thereafter.
type Command struct {
	Label        string // unique key within a registry
	Description  string
	TriggerLabel string // display form, e.g. "subscribe <game>"
	Trigger      string // pattern fragment with named captures, channel-independent
	RequiredRole Role
	// NoPrefix marks free-standing triggers (like "about") that match
	// without the channel prefix or mention tag.
	NoPrefix bool
	Handler  Handler
}

// Sender is the outbound side handlers reply through; the channel manager
// implements it.
type Sender interface {
	SendToChannel(ctx context.Context, channel, chatID, content string) error
}

// Env bundles the collaborators handlers need. It is built once at startup
// and passed by reference into the dispatch loop; there are no package
// level registries or bot singletons.
type Env struct {
	BotName       string
	DefaultPrefix string
	Registry      *Registry
	Store         *store.Store
	Catalog       *store.Catalog // nil when the catalog failed to load
	Resolver      *Resolver
	Sender        Sender
}
