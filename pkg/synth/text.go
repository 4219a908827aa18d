package synth

import (
	"strings"
	"unicode"
)

// NormalizeText prepares raw input for the engine: control characters are
// dropped, newlines and tabs become spaces, whitespace runs collapse to a
// single space, and the result is trimmed. Normalization never changes the
// spoken words, only their framing; an input of pure whitespace normalizes to
// the empty string and is rejected upstream.
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsControl(r):
			// Dropped entirely. Terminal escape bytes must never reach
			// the subprocess arguments or stdin.
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
