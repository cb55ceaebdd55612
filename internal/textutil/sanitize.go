package textutil

import "strings"

// Slug converts a display name to a lowercase identifier fragment. Diacritics
// are folded, letters and digits are kept, and every other run of runes
// becomes a single hyphen. Returns "unknown" for input with no usable runes.
func Slug(value string) string {
	value = strings.TrimSpace(FoldDiacritics(value))
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	return out
}
