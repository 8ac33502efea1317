package commands

import (
	"context"
	"strings"
	"sync"

	"github.com/gamewatch/gamewatch/pkg/bus"
	"github.com/gamewatch/gamewatch/pkg/channels"
	"github.com/gamewatch/gamewatch/pkg/logger"
)

// Resolver determines the effective role of a message author. Resolution
// never fails: when a platform lookup errors the resolver logs it and
// falls through to the plain user role, so command matching keeps working
// during platform API hiccups.
type Resolver struct {
	owners []string // "platform:user_id" or bare user_id

	mu    sync.RWMutex
	hints map[string]channels.RoleHintProvider
}

func NewResolver(ownerIDs []string) *Resolver {
	return &Resolver{
		owners: ownerIDs,
		hints:  make(map[string]channels.RoleHintProvider),
	}
}

// RegisterHints attaches a platform's role-hint provider. Adapters that
// cannot report admin status simply never register; their users resolve to
// the configured-owner check only.
func (r *Resolver) RegisterHints(channel string, provider channels.RoleHintProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hints[channel] = provider
}

// Resolve computes the author's role for one message.
//
// Channel posts carry no individual author and are treated as
// administrator actions: whoever can post as the channel controls it.
// Configured owners outrank everything the platform reports.
func (r *Resolver) Resolve(ctx context.Context, channel, chatID string, author bus.Author) Role {
	if author.ChannelPost {
		return RoleAdmin
	}
	if r.isOwner(channel, author.ID) {
		return RoleOwner
	}

	r.mu.RLock()
	provider, ok := r.hints[channel]
	r.mu.RUnlock()
	if !ok {
		return RoleUser
	}

	hint, err := provider.UserRoleHint(ctx, author.ID, chatID)
	if err != nil {
		logger.WarnCF("commands", "Role hint lookup failed", map[string]any{
			"channel": channel,
			"chat_id": chatID,
			"error":   err.Error(),
		})
		return RoleUser
	}
	if hint.IsOwner || hint.IsChannelAdmin || hint.IsOpenChannel {
		return RoleAdmin
	}
	return RoleUser
}

// isOwner matches the configured owner list. Entries qualified as
// "platform:user_id" bind to one platform; bare IDs grant ownership
// everywhere.
func (r *Resolver) isOwner(channel, userID string) bool {
	if userID == "" {
		return false
	}
	for _, entry := range r.owners {
		platform, id, qualified := strings.Cut(entry, ":")
		if qualified {
			if platform == channel && id == userID {
				return true
			}
			continue
		}
		if entry == userID {
			return true
		}
	}
	return false
}
