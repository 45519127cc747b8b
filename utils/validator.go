package utils

import (
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	slugRegex  = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)
	fieldRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{0,31}$`)
)

func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword checks password strength.
func ValidatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters"
	}
	return true, ""
}

func ValidateSlug(slug string) bool {
	return len(slug) <= 80 && slugRegex.MatchString(slug)
}

// ValidateFieldName: a letter followed by letters, digits or underscores.
// Field names end up as form keys, so "_lat", "_from" style suffixes must
// stay unambiguous.
func ValidateFieldName(name string) bool {
	return fieldRegex.MatchString(name)
}

func SanitizeInput(input string) string {
	return strings.TrimSpace(input)
}
