package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MaxEmailLength is the longest address accepted, in characters.
const MaxEmailLength = 254

// Loose address shape: local@domain.tld, no whitespace and a single @ per part.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// New returns a validator with the custom contact tags registered.
func New() *validator.Validate {
	v := validator.New()
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("contact_email", ContactEmail)
}

// ContactEmail validates the syntactic shape of an address. No DNS lookup is done.
func ContactEmail(fl validator.FieldLevel) bool {
	return IsEmail(fl.Field().String())
}

// IsEmail reports whether s, lowercased and trimmed, looks like an address
// and fits within MaxEmailLength.
func IsEmail(s string) bool {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if utf8.RuneCountInString(normalized) > MaxEmailLength {
		return false
	}
	return emailRegex.MatchString(normalized)
}
