// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/authcore/internal/errors"
)

var (
	// emailRegex is a basic email validation pattern
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// subjectRefRegex restricts subject references to a safe identifier charset.
	subjectRefRegex = regexp.MustCompile(`^[a-zA-Z0-9._@+\-]+$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// PasswordStrength validates that a password meets minimum security
// requirements: length plus at least one letter, one digit and one symbol
// among the required character classes.
type PasswordStrength struct {
	MinLength     int
	RequireLetter bool
	RequireDigit  bool
	RequireSymbol bool
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
			"password must be at least "+strconv.Itoa(p.MinLength)+" characters",
		)
	}

	if p.RequireLetter && !hasLetter(s) {
		return validation.NewError(
			"validation_password_letter",
			"password must contain at least one letter",
		)
	}

	if p.RequireDigit && !hasDigit(s) {
		return validation.NewError(
			"validation_password_digit",
			"password must contain at least one digit",
		)
	}

	if p.RequireSymbol && !hasSymbol(s) {
		return validation.NewError(
			"validation_password_symbol",
			"password must contain at least one symbol",
		)
	}

	return nil
}

// hasLetter checks if string contains letters
func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// hasDigit checks if string contains digits
func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// hasSymbol checks if string contains punctuation or symbol characters
func hasSymbol(s string) bool {
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return true
		}
	}
	return false
}

// Email validates email format using regex
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// SubjectRef validates that a subject reference uses a safe identifier
// charset (letters, digits, dot, underscore, at, plus, hyphen).
var SubjectRef = validation.NewStringRuleWithError(
	func(s string) bool {
		return subjectRefRegex.MatchString(s)
	},
	validation.NewError("validation_subject_ref", "must contain only letters, digits and ._@+-"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
