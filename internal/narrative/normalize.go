// Package narrative turns calendar events into a spoken daily briefing.
//
// Everything here is pure and synchronous. The only non-deterministic piece
// is the transition word choice, which goes through a Picker so callers can
// substitute a fixed sequence.
package narrative

import (
	"regexp"
	"strings"
)

var (
	separatorRe  = regexp.MustCompile(`[-_/\\|]`)
	// \s alone is ASCII only; \v, NEL and the Z categories are spaces too.
	symbolRe     = regexp.MustCompile(`[^\p{L}\p{N}\s\v\x{85}\p{Z}]`)
	whitespaceRe = regexp.MustCompile(`[\s\v\x{85}\p{Z}]+`)
)

// Normalize strips punctuation and symbols from free text so it reads
// cleanly when spoken. Separators (- _ / \ |) become spaces, any other
// non-alphanumeric rune is dropped and whitespace runs collapse to one space.
func Normalize(text string) string {
	if text == "" {
		return text
	}
	text = separatorRe.ReplaceAllString(text, " ")
	text = symbolRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
