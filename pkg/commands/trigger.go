package commands

import (
	"regexp"
	"strings"
)

// ChannelContext carries everything pattern compilation depends on for one
// channel. MentionTag is empty when the platform lookup failed; matching
// then degrades to prefix-only.
type ChannelContext struct {
	Key        string // "platform:chatID"
	Prefix     string
	MentionTag string
}

// addressClause builds the regex fragment matching "the bot is being
// addressed": the bare mention tag, the channel prefix optionally followed
// by the tag, or the bot's default prefix followed by the tag. All literal
// parts are quoted, so user-chosen prefixes containing regex
// metacharacters cannot corrupt matching.
func addressClause(prefix, mentionTag, defaultPrefix string) string {
	quotedPrefix := regexp.QuoteMeta(prefix)
	if mentionTag == "" {
		return "(?:" + quotedPrefix + `)\s*`
	}

	tag := regexp.QuoteMeta(mentionTag)
	alts := []string{
		tag,
		quotedPrefix + `(?:\s*` + tag + `)?`,
	}
	if defaultPrefix != "" && defaultPrefix != prefix {
		alts = append(alts, regexp.QuoteMeta(defaultPrefix)+`\s*`+tag)
	}
	return "(?:" + strings.Join(alts, "|") + `)\s*`
}

// compilePattern builds the full pattern for one command in one channel.
// Patterns are anchored start-to-end so a trigger can never match inside
// unrelated text; commands without a prefix anchor their bare trigger the
// same way. Matching is case-insensitive and captures may span newlines.
func compilePattern(cmd *Command, cc ChannelContext, defaultPrefix string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`(?is)^\s*`)
	if !cmd.NoPrefix {
		b.WriteString(addressClause(cc.Prefix, cc.MentionTag, defaultPrefix))
	}
	b.WriteString("(?:")
	b.WriteString(cmd.Trigger)
	b.WriteString(`)\s*$`)
	return regexp.Compile(b.String())
}

// compileAddressPattern matches any message that addresses the bot at all,
// capturing the remainder for the fallback handler.
func compileAddressPattern(cc ChannelContext, defaultPrefix string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?is)^\s*` + addressClause(cc.Prefix, cc.MentionTag, defaultPrefix) + `(?P<rest>.*)$`)
}

// capturesFrom builds the typed capture set from a successful match.
func capturesFrom(re *regexp.Regexp, match []string) Captures {
	caps := make(Captures)
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) && match[i] != "" {
			caps[name] = match[i]
		}
	}
	return caps
}
