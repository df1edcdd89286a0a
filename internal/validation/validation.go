package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// MaxInputLength caps free-text input.
const MaxInputLength = 500

var (
	slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateSlug checks that s is lowercase alphanumeric segments joined by single hyphens.
func ValidateSlug(s string) error {
	if s == "" {
		return ValidationError{Field: "slug", Message: "slug is required"}
	}
	if !slugRegex.MatchString(s) {
		return ValidationError{Field: "slug", Message: "slug must be lowercase letters and digits separated by single hyphens"}
	}
	return nil
}

// IsValidSlug reports whether s is a well-formed topic slug.
func IsValidSlug(s string) bool {
	return ValidateSlug(s) == nil
}

// IsValidUUID reports whether s is a hyphenated UUID in either case.
func IsValidUUID(s string) bool {
	if !uuidRegex.MatchString(s) {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// SanitizeInput trims surrounding whitespace and caps the length.
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > MaxInputLength {
		return string(runes[:MaxInputLength])
	}
	return s
}
