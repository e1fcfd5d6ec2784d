// Package validation provides custom validation rules for the application.
package validation

import (
	"fmt"
	"regexp"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/localvault/internal/errors"
)

var (
	// secretNameRegex restricts secret names to a safe filename-compatible charset.
	secretNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,100}$`)

	// usernameRegex allows readable account names without whitespace or separators.
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// patternRule validates a string against a regexp. Unlike the library's
// built-in string rules it does not skip empty values: the empty string must
// match the pattern or the rule fails.
type patternRule struct {
	pattern *regexp.Regexp
	err     validation.Error
}

// Validate checks the value is a string matching the pattern.
func (r patternRule) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok || !r.pattern.MatchString(s) {
		return r.err
	}
	return nil
}

// SecretName validates that a secret name is non-empty, at most 100 characters,
// and contains only alphanumerics, underscores, and hyphens. Secret names double
// as file names on disk, so the charset is deliberately strict.
var SecretName validation.Rule = patternRule{
	pattern: secretNameRegex,
	err: validation.NewError(
		"validation_secret_name",
		"must contain only letters, digits, underscores, and hyphens (1-100 chars)",
	),
}

// Username validates account usernames.
var Username validation.Rule = patternRule{
	pattern: usernameRegex,
	err: validation.NewError(
		"validation_username",
		"must contain only letters, digits, dots, underscores, and hyphens (1-64 chars)",
	),
}

// PasswordStrength validates password meets minimum security requirements
type PasswordStrength struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

// Validate checks if the password meets the configured requirements
func (p PasswordStrength) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_password_strength", "password must be a string")
	}

	if len(s) < p.MinLength {
		return validation.NewError(
			"validation_password_min_length",
			fmt.Sprintf("password must be at least %d characters", p.MinLength),
		)
	}

	if p.RequireUpper && !hasUpperCase(s) {
		return validation.NewError(
			"validation_password_uppercase",
			"password must contain at least one uppercase letter",
		)
	}

	if p.RequireLower && !hasLowerCase(s) {
		return validation.NewError(
			"validation_password_lowercase",
			"password must contain at least one lowercase letter",
		)
	}

	if p.RequireNumber && !hasNumber(s) {
		return validation.NewError("validation_password_number", "password must contain at least one number")
	}

	if p.RequireSpecial && !hasSpecialChar(s) {
		return validation.NewError(
			"validation_password_special",
			"password must contain at least one special character",
		)
	}

	return nil
}

// hasUpperCase checks if string contains uppercase letters
func hasUpperCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// hasLowerCase checks if string contains lowercase letters
func hasLowerCase(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

// hasNumber checks if string contains numbers
func hasNumber(s string) bool {
	for _, r := range s {
		if unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

// hasSpecialChar checks if string contains special characters
func hasSpecialChar(s string) bool {
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return true
		}
	}
	return false
}
