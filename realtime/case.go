package realtime

import (
	"strings"
	"unicode"
)

// NormalizeEventType maps the spellings producers use for an event type
// (LeaveRequestApproved, leave-request-approved, "Leave Request Approved")
// to the snake_case form used by the routing table.
func NormalizeEventType(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	words := make([]string, 0, len(fields))
	for _, f := range fields {
		words = append(words, splitCamel(f)...)
	}
	return strings.ToLower(strings.Join(words, "_"))
}

// splitCamel breaks a word where a lower-case letter meets an upper-case one.
func splitCamel(s string) []string {
	runes := []rune(s)
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	return append(words, string(runes[start:]))
}
