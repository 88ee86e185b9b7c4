package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes one rejected field of a request or seed document
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	switch len(ve) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	fields := make([]string, 0, len(ve))
	for _, e := range ve {
		fields = append(fields, e.Field)
	}
	return fmt.Sprintf("validation failed on %d fields: %s", len(ve), strings.Join(fields, ", "))
}

// Prefixed returns a copy whose field names are nested under prefix, e.g. "questions[2].prompt".
func (ve ValidationErrors) Prefixed(prefix string) ValidationErrors {
	out := make(ValidationErrors, len(ve))
	for i, e := range ve {
		e.Field = prefix + "." + e.Field
		out[i] = e
	}
	return out
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// ToValidationErrors converts validator/v10 errors found anywhere in err's chain.
// It returns nil when err carries none.
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}

	result := make(ValidationErrors, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		result = append(result, ValidationError{
			Field:   fieldErr.Field(),
			Message: messageFor(fieldErr),
			Value:   fieldErr.Value(),
			Rule:    fieldErr.Tag(),
		})
	}
	return result
}

func messageFor(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "gte":
		return fmt.Sprintf("must be %s or more", err.Param())
	case "lte":
		return fmt.Sprintf("must be %s or less", err.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())

	case "question_type":
		return "must be multiple_choice, true_false or short_answer"
	case "difficulty_level":
		return "must be easy, medium or hard"

	default:
		return fmt.Sprintf("failed the %q rule", err.Tag())
	}
}
