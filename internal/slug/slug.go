// Package slug builds URL-safe identifiers from titles and names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	multipleHyphens = regexp.MustCompile(`-+`)
)

// maxLength keeps slugs readable in URLs.
const maxLength = 80

// Fold lowercases s and strips diacritics and other non-ASCII runes,
// keeping spacing intact. "Memórias Póstumas" -> "memorias postumas".
func Fold(s string) string {
	// Decompose accents so "ã" becomes "a" + combining tilde, then drop the marks.
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
	return strings.ToLower(s)
}

// Make converts s to a lowercase hyphenated ASCII slug.
// "Machado de Assis" -> "machado-de-assis", "Semana de Arte Moderna (1922)" -> "semana-de-arte-moderna-1922".
func Make(s string) string {
	s = Fold(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > maxLength {
		s = strings.TrimRight(s[:maxLength], "-")
	}
	return s
}

// WithSuffix appends a short disambiguating suffix, used when a slug is
// already taken.
func WithSuffix(s, suffix string) string {
	base := Make(s)
	suffix = Make(suffix)
	switch {
	case base == "":
		return suffix
	case suffix == "":
		return base
	default:
		return base + "-" + suffix
	}
}
