package users

import "strings"

// NormalizePhone strips every non-digit character. Clients send numbers
// in assorted shapes ("+62 812-3456", "0812 3456"); lookups and storage
// both use the normalized form.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
