package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SnippetLength is the character window extracted around the first query
// term hit. A stable default; the window is centered on the hit when the
// chunk is long enough.
const SnippetLength = 200

// Snippet extracts a display window from chunk text, centered on the first
// case-insensitive occurrence of any query term. Without a hit it returns
// the chunk head. Boundaries are snapped to rune boundaries so multibyte
// text never splits mid-character.
func Snippet(text, query string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= SnippetLength {
		return text
	}

	runes := []rune(text)
	center := hitPosition(runes, query)

	half := SnippetLength / 2
	start := center - half
	if start < 0 {
		start = 0
	}
	end := start + SnippetLength
	if end > len(runes) {
		end = len(runes)
		start = end - SnippetLength
	}

	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = "…" + out
	}
	if end < len(runes) {
		out = out + "…"
	}
	return out
}

// hitPosition returns the rune index of the first query term found in text,
// or 0 when nothing matches.
func hitPosition(runes []rune, query string) int {
	lower := strings.ToLower(string(runes))
	for _, term := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if idx := strings.Index(lower, term); idx >= 0 {
			return utf8.RuneCountInString(lower[:idx])
		}
	}
	return 0
}
