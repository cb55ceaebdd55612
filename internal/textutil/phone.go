package textutil

import "strings"

const minPhoneDigits = 7

// NormalizePhone strips formatting from a phone number, keeping digits and a
// single leading plus sign. A "00" international prefix becomes "+". Values
// with fewer than seven digits are rejected.
func NormalizePhone(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	var b strings.Builder
	for _, r := range trimmed {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	value := b.String()
	if strings.HasPrefix(value, "00") {
		value = "+" + value[2:]
	}
	if strings.Contains(value, "+") {
		value = "+" + strings.ReplaceAll(value, "+", "")
	}
	digits := keepDigits(value)
	if len(digits) < minPhoneDigits {
		return "", false
	}
	return value, true
}
