package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tienminhktvn/dataops-project/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(tagName)
		_ = validate.RegisterValidation("taskid", func(fl validator.FieldLevel) bool {
			return taskIDPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// tagName reports a field by its config key, falling back to its json name.
func tagName(fld reflect.StructField) string {
	for _, key := range []string{"mapstructure", "json"} {
		name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return toSnakeCase(fld.Name)
}

// Validate validates a struct using `validate:"..."` tags.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}

	fields := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, FieldError{
			Field:   fieldPath(e.Namespace()),
			Message: formatValidationError(e),
		})
	}
	return toAppError(fields)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte", "min":
		return "must be at least " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lte", "max":
		return "must be at most " + e.Param()
	case "taskid":
		return "is not a valid identifier"
	default:
		return "is invalid"
	}
}

func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
