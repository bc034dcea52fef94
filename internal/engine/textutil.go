package engine

import "strings"

// WordBoundary is the SentencePiece marker placed before each new word.
const WordBoundary = "▁"

// SentinelPrefix marks failed translations on string-only boundaries.
const SentinelPrefix = "ERROR: "

const trimCutset = " \t\n\r"

// NormalizeText replaces word-boundary markers with single spaces. A marker
// at the start of the text or right after another marker emits nothing.
func NormalizeText(decoded string) string {
	if !strings.Contains(decoded, WordBoundary) {
		return decoded
	}

	var b strings.Builder
	b.Grow(len(decoded))
	lastWasMarker := false
	for i := 0; i < len(decoded); {
		if strings.HasPrefix(decoded[i:], WordBoundary) {
			if !lastWasMarker && b.Len() > 0 {
				b.WriteByte(' ')
			}
			lastWasMarker = true
			i += len(WordBoundary)
			continue
		}
		b.WriteByte(decoded[i])
		lastWasMarker = false
		i++
	}
	return b.String()
}

// SentinelText renders err the way string-only callers expect failures.
func SentinelText(err error) string {
	if err == nil {
		return ""
	}
	return SentinelPrefix + err.Error()
}

// IsSentinel reports whether s is a failure rendered by SentinelText.
func IsSentinel(s string) bool {
	return strings.HasPrefix(s, SentinelPrefix)
}
