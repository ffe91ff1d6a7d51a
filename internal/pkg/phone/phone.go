// Package phone holds the canonical mobile number format used for accounts.
package phone

import (
	"regexp"
	"strings"
)

// Canonical form: a leading '+' followed by 10 to 15 digits.
var canonical = regexp.MustCompile(`^\+\d{10,15}$`)

// Normalize trims surrounding whitespace. It does not rewrite the number.
func Normalize(s string) string { return strings.TrimSpace(s) }

// Valid reports whether s is in canonical form.
func Valid(s string) bool { return canonical.MatchString(s) }

// Mask hides all but the last four digits, for log output.
func Mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
