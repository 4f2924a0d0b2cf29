package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes
	MaxPasswordBytes     = 72
	MaxDisplayNameLength = 40
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "Please provide your email"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "Please provide a valid email"}
	}
	return nil
}

// ValidateDisplayName checks the public name shown on posts
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "displayName", Message: "Please provide a display name"}
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return ValidationError{Field: "displayName", Message: fmt.Sprintf("Display name must be at most %d characters", MaxDisplayNameLength)}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "Please provide a password"}
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}
	if len(password) > MaxPasswordBytes {
		return ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at most %d bytes", MaxPasswordBytes)}
	}
	return nil
}

// ValidatePasswordConfirm checks the password and its confirmation together
func ValidatePasswordConfirm(password, confirm string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if confirm == "" {
		return ValidationError{Field: "passwordConfirm", Message: "Please confirm your password"}
	}
	if password != confirm {
		return ValidationError{Field: "passwordConfirm", Message: "Passwords are not the same"}
	}
	return nil
}

// ValidatePostTitle checks a post title
func ValidatePostTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ValidationError{Field: "title", Message: "A post must have a title"}
	}
	return nil
}

// ValidatePostContent checks a post body
func ValidatePostContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ValidationError{Field: "content", Message: "A post must have content"}
	}
	return nil
}
