package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var multiSpace = regexp.MustCompile(`\s+`)

// ClientName trims the cell and collapses internal whitespace runs.
func ClientName(v any) string {
	s := strings.TrimSpace(String(v))
	return multiSpace.ReplaceAllString(s, " ")
}

// Text returns the trimmed string form of v, or fallback when blank.
func Text(v any, fallback string) string {
	s := strings.TrimSpace(String(v))
	if s == "" {
		return fallback
	}
	return s
}

// Fold lowercases s and strips combining diacritics ("Catastrófico" ->
// "catastrofico").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// EqualFold compares two labels ignoring case, accents and surrounding space.
func EqualFold(a, b string) bool {
	return Fold(strings.TrimSpace(a)) == Fold(strings.TrimSpace(b))
}
