package signage

import "strings"

// SanitizeShopName strips every character outside letters, digits, spaces and
// -_.,'& from a shop name. Idempotent, so it is safe to apply on every edit
// and again at submission.
func SanitizeShopName(s string) string {
	return strings.Map(func(r rune) rune {
		if allowedShopNameRune(r) {
			return r
		}
		return -1
	}, s)
}

func allowedShopNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	}
	switch r {
	case ' ', '\t', '-', '_', '.', ',', '\'', '&':
		return true
	}
	return false
}
