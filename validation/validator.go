package validation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/scribe/errors"
)

// Validator collects field errors.
type Validator struct {
	errors []FieldError
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Validate returns an AppError if there are validation errors, nil otherwise.
// Single-field failures keep the field in Details so clients can highlight it.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = fmt.Sprintf("%s %s", e.Field, e.Message)
	}
	appErr := errors.Validation(strings.Join(messages, "; "))
	appErr.WithDetail("fields", v.errors)
	if len(v.errors) == 1 {
		appErr.WithDetail("field", v.errors[0].Field)
	}
	return appErr
}

// Required checks that a string is non-blank.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// UUID checks that a non-empty string parses as a UUID.
func (v *Validator) UUID(field, value string) *Validator {
	if value == "" {
		return v
	}
	if _, err := uuid.Parse(value); err != nil {
		v.AddError(field, "must be a valid UUID")
	}
	return v
}

// NonNegative checks that n >= 0.
func (v *Validator) NonNegative(field string, n int) *Validator {
	if n < 0 {
		v.AddError(field, "must be >= 0")
	}
	return v
}

// MIMEType checks that value is a type/subtype string.
func (v *Validator) MIMEType(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	} else if !IsMIMEType(value) {
		v.AddError(field, "must be a MIME type such as audio/webm")
	}
	return v
}

// MaxBytes checks that size does not exceed limit.
func (v *Validator) MaxBytes(field string, size, limit int64) *Validator {
	if size > limit {
		v.AddError(field, fmt.Sprintf("must be at most %d bytes", limit))
	}
	return v
}

// Custom applies a custom validation condition.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}
