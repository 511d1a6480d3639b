package strutil

import "unicode/utf8"

// TruncateUTF8 cuts s to at most maxBytes bytes, backing off to the start
// of the last whole character. Use it where storage limits are in bytes.
func TruncateUTF8(s string, maxBytes int) string {
	switch {
	case maxBytes <= 0:
		return ""
	case len(s) <= maxBytes:
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// TruncateRunes returns at most max characters of s.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
