package selection

import (
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)

// CleanSubject normalizes and hard-truncates a subject line. The length
// cap is enforced here because the oracle's promise to honor it is worth
// nothing.
func CleanSubject(s string, maxLength int) string {
	s = controlChars.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, `"`)

	runes := []rune(s)
	if maxLength > 3 && len(runes) > maxLength {
		s = string(runes[:maxLength-3]) + "..."
	}
	return s
}
