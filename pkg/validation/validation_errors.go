package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps field names to the labels used in client-facing messages.
var FieldLabels = map[string]string{
	"name":    "Name",
	"email":   "Email",
	"message": "Message",
}

// FormatFieldError converts a single validator failure for field into a user-facing message.
func FormatFieldError(field string, err error) string {
	label := getFieldLabel(field)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return fmt.Sprintf("%s is invalid", label)
	}

	e := validationErrors[0]
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", label, e.Param())
	case "max":
		if field == "email" {
			return "Please provide a valid email address"
		}
		return fmt.Sprintf("%s must be at most %s characters long", label, e.Param())
	case "contact_email", "email":
		return "Please provide a valid email address"
	default:
		return fmt.Sprintf("%s is invalid (%s)", label, e.Tag())
	}
}

func getFieldLabel(field string) string {
	if label, ok := FieldLabels[field]; ok {
		return label
	}
	return field
}
