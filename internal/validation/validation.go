package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	MaxIdentifierLength = 100
	MinPasswordLength   = 6
	MaxPasswordLength   = 128
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,30}$`)
	emailRegex    = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

	// Keyword blocklist applied to identifier inputs.
	sqlKeywordRegex = regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|EXEC|UNION)\b`)

	// Superusers keep the framework's wider username charset.
	superuserNameRegex = regexp.MustCompile(`^[\w.@+-]+$`)
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateUsername checks signup username format and content.
func ValidateUsername(username string) error {
	if username == "" {
		return ValidationError{Field: "username", Message: "username is required"}
	}
	if !usernameRegex.MatchString(username) {
		return ValidationError{Field: "username", Message: "Invalid username. Use 3-30 letters, numbers, _.- only."}
	}
	if ContainsSQLKeyword(username) {
		return ValidationError{Field: "username", Message: "Invalid username content."}
	}
	return nil
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "Invalid email address"}
	}
	if ContainsSQLKeyword(email) {
		return ValidationError{Field: "email", Message: "Invalid email content."}
	}
	return nil
}

// ValidatePassword checks if a password meets length requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return ValidationError{Field: "password", Message: fmt.Sprintf("Password must be %d-%d characters", MinPasswordLength, MaxPasswordLength)}
	}
	return nil
}

// ValidateLoginIdentifier checks a username-or-email login field.
func ValidateLoginIdentifier(identifier string) error {
	if identifier == "" {
		return ValidationError{Field: "username", Message: "username or email is required"}
	}
	if len(identifier) > MaxIdentifierLength {
		return ValidationError{Field: "username", Message: "Invalid input length"}
	}
	if ContainsSQLKeyword(identifier) {
		return ValidationError{Field: "username", Message: "Invalid characters in username/email"}
	}
	return nil
}

// ValidateSuperuserField checks a superuser login field (username or password)
// against the framework charset and the link/markup blocklist.
func ValidateSuperuserField(field, value string) error {
	if value == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if containsMarkup(value) {
		return ValidationError{Field: field, Message: "Invalid characters in " + field + "."}
	}
	if field == "username" && !superuserNameRegex.MatchString(value) {
		return ValidationError{Field: field, Message: "Username contains invalid characters."}
	}
	return nil
}

// ContainsSQLKeyword reports whether value contains a blocklisted SQL keyword.
func ContainsSQLKeyword(value string) bool {
	return sqlKeywordRegex.MatchString(value)
}

func containsMarkup(value string) bool {
	return strings.Contains(value, "http://") ||
		strings.Contains(value, "https://") ||
		strings.Contains(value, "<") ||
		strings.Contains(value, ">")
}
