package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRegex matches user and challenge identifiers: letters, digits,
// dash, underscore and dot, at most 64 characters
var identifierRegex = regexp.MustCompile(`^[A-Za-z0-9._\-]{1,64}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateUserID checks that a user identifier is present and well formed
func ValidateUserID(id string) error {
	return validateIdentifier("userId", id)
}

// ValidateChallengeID checks that a challenge identifier is present and well formed
func ValidateChallengeID(id string) error {
	return validateIdentifier("challengeId", id)
}

func validateIdentifier(field, id string) error {
	if id == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if !identifierRegex.MatchString(id) {
		return ValidationError{Field: field, Message: "invalid " + field + " format"}
	}
	return nil
}

// ValidateUsername checks if a display name is valid
func ValidateUsername(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "username", Message: "username is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "username", Message: "username must be at least 2 characters"}
	}
	if len(name) > 64 {
		return ValidationError{Field: "username", Message: "username must be at most 64 characters"}
	}
	return nil
}
