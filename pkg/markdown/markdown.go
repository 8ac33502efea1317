// Package markdown rewrites the bot's common markdown dialect into each
// platform's supported subset. Conversions are idempotent: running a
// converter over already-converted text leaves it unchanged, so adapters
// may convert defensively.
package markdown

import (
	"regexp"
	"strings"
)

// DefaultBudget is the character budget applied to notification text.
const DefaultBudget = 2000

var (
	imagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)
	linkPattern  = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	boldPattern  = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// ToTelegram converts to Telegram's legacy Markdown dialect: double-star
// bold becomes single-star, links and images keep their inline form.
func ToTelegram(text string) string {
	text = imagePattern.ReplaceAllString(text, "[$1]($2)")
	return boldPattern.ReplaceAllString(text, "*$1*")
}

// ToDiscord is the identity conversion: Discord accepts the common dialect.
func ToDiscord(text string) string {
	return text
}

// ToSlack converts to Slack mrkdwn: links become <url|text>, images become
// bare links, double-star bold becomes single-star.
func ToSlack(text string) string {
	text = imagePattern.ReplaceAllString(text, "<$2|$1>")
	text = linkPattern.ReplaceAllString(text, "<$2|$1>")
	return boldPattern.ReplaceAllString(text, "*$1*")
}

// ForChannel applies the converter registered for the named platform.
// Unknown platforms get the text unchanged.
func ForChannel(channel, text string) string {
	switch channel {
	case "telegram":
		return ToTelegram(text)
	case "discord":
		return ToDiscord(text)
	case "slack":
		return ToSlack(text)
	default:
		return text
	}
}

// Truncate cuts text to at most budget runes, deterministically: the same
// input always yields the same output, and a trailing ellipsis marks the
// cut. Text within budget passes through untouched.
func Truncate(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	cut := budget - 1
	return strings.TrimRight(string(runes[:cut]), " \t\n") + "…"
}
