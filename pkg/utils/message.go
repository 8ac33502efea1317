package utils

import (
	"strings"
	"unicode"
)

// SplitMessage splits long messages into chunks no longer than maxLen runes,
// preferring sentence boundaries, then newlines, then spaces. Rune counts are
// used so multi-byte characters are never split in half.
func SplitMessage(content string, maxLen int) []string {
	if content == "" {
		return nil
	}
	if maxLen <= 0 {
		return []string{content}
	}

	runes := []rune(content)
	var chunks []string

	for len(runes) > 0 {
		if len(runes) <= maxLen {
			chunks = append(chunks, string(runes))
			break
		}

		window := runes[:maxLen]
		cut := findSplitPoint(window)
		if cut <= 0 {
			cut = maxLen
		}

		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), " \t\n"))
		runes = runes[cut:]
		for len(runes) > 0 && (runes[0] == '\n' || runes[0] == ' ') {
			runes = runes[1:]
		}
	}

	return chunks
}

// findSplitPoint returns the index after the best boundary in window,
// searching backwards: sentence end, newline, then any space.
func findSplitPoint(window []rune) int {
	limit := len(window) / 2

	for i := len(window) - 1; i > limit; i-- {
		if (window[i] == '.' || window[i] == '!' || window[i] == '?') &&
			(i+1 == len(window) || unicode.IsSpace(window[i+1])) {
			return i + 1
		}
	}
	for i := len(window) - 1; i > limit; i-- {
		if window[i] == '\n' {
			return i + 1
		}
	}
	for i := len(window) - 1; i > limit; i-- {
		if window[i] == ' ' {
			return i + 1
		}
	}
	return -1
}
