package cacheinfra

import "strings"

// KeySeparator sits between the segments of a joined key.
const KeySeparator = "::"

// JoinKey joins segments with KeySeparator. Backslashes and colons inside a
// segment are escaped with a backslash, so distinct segment lists never
// join to the same string.
func JoinKey(segments []string) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString(KeySeparator)
		}
		for j := 0; j < len(seg); j++ {
			if c := seg[j]; c == '\\' || c == ':' {
				b.WriteByte('\\')
			}
			b.WriteByte(seg[j])
		}
	}
	return b.String()
}

// SplitKey is the inverse of JoinKey. The empty string yields no segments.
func SplitKey(s string) []string {
	if s == "" {
		return []string{}
	}

	var (
		segments []string
		cur      strings.Builder
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case c == ':' && i+1 < len(s) && s[i+1] == ':':
			segments = append(segments, cur.String())
			cur.Reset()
			i++
		default:
			cur.WriteByte(c)
		}
	}
	return append(segments, cur.String())
}
