package utils

import (
	"fmt"
	"regexp"
	"strings"
)

const maxIdentifierLength = 128

var (
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	identifierRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]*$`)
	controlChars    = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateIdentifier checks a provider or payer identifier
func ValidateIdentifier(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s is required", kind)
	}
	if len(id) > maxIdentifierLength {
		return fmt.Errorf("%s exceeds %d characters", kind, maxIdentifierLength)
	}
	if !identifierRegex.MatchString(id) {
		return fmt.Errorf("%s %q may only contain letters, digits, '.', '_', ':' and '-'", kind, id)
	}
	return nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
