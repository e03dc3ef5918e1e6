// Package slug derives unique, URL-safe identifiers from article titles.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is the base candidate used when normalization produces an empty
// slug (e.g. a title made entirely of punctuation).
const Fallback = "untitled"

// Pattern matches every slug this package produces.
var Pattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// stripMarks decomposes to NFD and removes combining marks, so that
// "Café" normalizes to "Cafe" rather than dropping the accented rune.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make normalizes a title into a slug candidate: lowercase, diacritics
// stripped, every run of characters outside [a-z0-9] collapsed to a single
// hyphen, leading and trailing hyphens trimmed. Deterministic and pure;
// uniqueness is the caller's concern.
func Make(title string) string {
	s, _, err := transform.String(stripMarks, title)
	if err != nil {
		s = title
	}
	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}
