package textutil

import (
	"regexp"
	"strings"
)

var (
	zipPattern          = regexp.MustCompile(`\b(\d{5})\b`)
	streetNumberPattern = regexp.MustCompile(`\b(\d{1,5}(?:[-\s]\d{1,4})?)\b`)
)

// ExtractZip returns the last standalone five digit group in address, which
// is where US addresses carry the zip code.
func ExtractZip(address string) (string, bool) {
	matches := zipPattern.FindAllStringSubmatch(address, -1)
	if len(matches) == 0 {
		return "", false
	}
	return matches[len(matches)-1][1], true
}

// ExtractStreetNumber returns the digits of the first house number in
// address. Hyphenated Queens-style numbers ("35-12") collapse to "3512".
func ExtractStreetNumber(address string) (string, bool) {
	match := streetNumberPattern.FindStringSubmatch(address)
	if match == nil {
		return "", false
	}
	digits := keepDigits(match[1])
	if digits == "" {
		return "", false
	}
	return digits, true
}

func keepDigits(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
