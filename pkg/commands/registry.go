package commands

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gamewatch/gamewatch/pkg/logger"
)

// patternKey identifies one compiled pattern set. Prefix and mention tag
// are part of the key so a prefix change or a late mention-tag lookup
// naturally compiles fresh patterns instead of serving stale ones.
type patternKey struct {
	channelKey string
	label      string
	prefix     string
	mentionTag string
}

// Registry holds the bot's commands in declaration order and caches the
// per-channel compiled patterns.
type Registry struct {
	commands      []*Command
	byLabel       map[string]*Command
	defaultPrefix string

	mu       sync.RWMutex
	patterns map[patternKey]*regexp.Regexp
	address  map[patternKey]*regexp.Regexp
}

// NewRegistry builds a registry from commands in the given order. Order is
// meaningful: the first matching command wins. Duplicate labels and
// patterns that fail to compile against a neutral context are rejected at
// startup rather than surfacing per-message.
func NewRegistry(defaultPrefix string, cmds []*Command) (*Registry, error) {
	r := &Registry{
		commands:      cmds,
		byLabel:       make(map[string]*Command, len(cmds)),
		defaultPrefix: defaultPrefix,
		patterns:      make(map[patternKey]*regexp.Regexp),
		address:       make(map[patternKey]*regexp.Regexp),
	}

	probe := ChannelContext{Prefix: defaultPrefix}
	for _, cmd := range cmds {
		if cmd.Label == "" {
			return nil, fmt.Errorf("command with empty label")
		}
		if _, dup := r.byLabel[cmd.Label]; dup {
			return nil, fmt.Errorf("duplicate command label %q", cmd.Label)
		}
		if cmd.Handler == nil {
			return nil, fmt.Errorf("command %q has no handler", cmd.Label)
		}
		if _, err := compilePattern(cmd, probe, defaultPrefix); err != nil {
			return nil, fmt.Errorf("command %q has invalid trigger: %w", cmd.Label, err)
		}
		r.byLabel[cmd.Label] = cmd
	}
	return r, nil
}

// Commands returns the registered commands in declaration order.
func (r *Registry) Commands() []*Command {
	return r.commands
}

func (r *Registry) pattern(cmd *Command, cc ChannelContext) *regexp.Regexp {
	key := patternKey{cc.Key, cmd.Label, cc.Prefix, cc.MentionTag}

	r.mu.RLock()
	re, ok := r.patterns[key]
	r.mu.RUnlock()
	if ok {
		return re
	}

	re, err := compilePattern(cmd, cc, r.defaultPrefix)
	if err != nil {
		// Triggers were validated at startup; a failure here means the
		// channel context itself is broken. Treat the command as
		// unmatched for this channel.
		logger.ErrorCF("commands", "Pattern compilation failed", map[string]any{
			"command": cmd.Label,
			"channel": cc.Key,
			"error":   err.Error(),
		})
		return nil
	}

	r.mu.Lock()
	r.patterns[key] = re
	r.mu.Unlock()
	return re
}

// Match finds the first command whose pattern matches text in the given
// channel context and returns it with the named captures.
func (r *Registry) Match(cc ChannelContext, text string) (*Command, Captures, bool) {
	for _, cmd := range r.commands {
		re := r.pattern(cmd, cc)
		if re == nil {
			continue
		}
		if m := re.FindStringSubmatch(text); m != nil {
			return cmd, capturesFrom(re, m), true
		}
	}
	return nil, nil, false
}

// AddressedRest reports whether text addresses the bot at all even though
// no command matched, returning the trailing text after the address
// clause. The fallback "unknown command" reply hangs off this.
func (r *Registry) AddressedRest(cc ChannelContext, text string) (string, bool) {
	key := patternKey{cc.Key, "", cc.Prefix, cc.MentionTag}

	r.mu.RLock()
	re, ok := r.address[key]
	r.mu.RUnlock()
	if !ok {
		var err error
		re, err = compileAddressPattern(cc, r.defaultPrefix)
		if err != nil {
			return "", false
		}
		r.mu.Lock()
		r.address[key] = re
		r.mu.Unlock()
	}

	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(capturesFrom(re, m)["rest"]), true
}

// RenderHelp lists the commands the given role may run, in declaration
// order, using the channel's effective prefix for display.
func (r *Registry) RenderHelp(cc ChannelContext, role Role) string {
	var b strings.Builder
	for _, cmd := range r.commands {
		if !role.Satisfies(cmd.RequiredRole) {
			continue
		}
		trigger := cmd.TriggerLabel
		if !cmd.NoPrefix {
			trigger = cc.Prefix + trigger
		}
		fmt.Fprintf(&b, "`%s`: %s\n", trigger, cmd.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Dispatch runs one matched command: the permission gate, the handler, and
// latency logging. Handler errors are logged, never propagated; one broken
// message must not take down the loop.
func (r *Registry) Dispatch(ctx context.Context, env *Env, cmd *Command, req Request) {
	if !req.Role.Satisfies(cmd.RequiredRole) {
		// An ordinary user poking an admin command is expected traffic,
		// not an error condition.
		logger.DebugCF("commands", "Permission denied", map[string]any{
			"command": cmd.Label,
			"channel": req.ChannelKey,
			"role":    req.Role.String(),
		})
		reply := fmt.Sprintf("You need the %s role to run `%s`.", cmd.RequiredRole, cmd.TriggerLabel)
		if err := req.Reply(reply); err != nil {
			logger.ErrorCF("commands", "Failed to send denial reply", map[string]any{
				"command": cmd.Label,
				"error":   err.Error(),
			})
		}
		return
	}

	start := time.Now()
	err := cmd.Handler(ctx, env, req)

	fields := map[string]any{
		"command":    cmd.Label,
		"channel":    req.ChannelKey,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}
	// End-to-end latency from when the platform produced the message,
	// covering queueing and role resolution on top of the handler itself.
	if !req.Timestamp.IsZero() {
		fields["latency_ms"] = time.Since(req.Timestamp).Milliseconds()
	}

	if err != nil {
		fields["error"] = err.Error()
		logger.ErrorCF("commands", "Command failed", fields)
		return
	}
	logger.DebugCF("commands", "Command handled", fields)
}
