// Package validation turns request validation failures into INVALID_INPUT
// application errors, either from go-playground struct tags or from a small
// fluent checker for values that do not live in a struct.
package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/scribe/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their wire names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form", "uri"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
		_ = validate.RegisterValidation("mimetype", func(fl validator.FieldLevel) bool {
			return IsMIMEType(fl.Field().String())
		})
	})
	return validate
}

// Validate validates a struct using `validate:"..."` tags.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed")
	}

	v := New()
	for _, e := range validationErrors {
		v.AddError(e.Field(), formatValidationError(e))
	}
	return v.Validate()
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	case "mimetype":
		return "must be a MIME type such as audio/webm"
	default:
		return "is invalid"
	}
}

// IsMIMEType reports whether s looks like type/subtype.
func IsMIMEType(s string) bool {
	base := strings.TrimSpace(strings.SplitN(s, ";", 2)[0])
	typ, sub, ok := strings.Cut(base, "/")
	return ok && typ != "" && sub != "" && !strings.ContainsAny(base, " \t")
}
