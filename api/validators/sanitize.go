package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims input, drops invalid UTF-8 and caps it at maxLen bytes
// without splitting a character.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(strings.ToValidUTF8(input, ""))
	if maxLen <= 0 || len(trimmed) <= maxLen {
		return trimmed
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
		cut--
	}
	return trimmed[:cut]
}
