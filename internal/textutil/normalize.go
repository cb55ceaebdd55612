package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldCaser = cases.Fold()

// FoldDiacritics decomposes text and drops combining marks, so "Café" becomes
// "Cafe". Input that cannot be transformed is returned unchanged.
func FoldDiacritics(value string) string {
	if value == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return folded
}

// NormalizeName folds diacritics and case, then strips every rune that is not
// a letter or digit. Normalizing an already normalized value is a no-op.
func NormalizeName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	folded := foldCaser.String(FoldDiacritics(value))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TokenSet is an unordered set of normalized tokens.
type TokenSet map[string]struct{}

// Tokens splits value into lowercase alphanumeric tokens after diacritic
// folding. Duplicate tokens collapse into one entry.
func Tokens(value string) TokenSet {
	folded := foldCaser.String(FoldDiacritics(value))
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(TokenSet, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}

// Has reports whether token is part of the set.
func (s TokenSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}
