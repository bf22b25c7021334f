package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tienminhktvn/dataops-project/errors"
)

// taskIDPattern is the shape accepted for task and pipeline identifiers.
var taskIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Validator collects validation errors.
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
	return &Validator{errors: make([]FieldError, 0)}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns an AppError listing every field error, or nil.
func (v *Validator) Validate() error {
	if !v.HasErrors() {
		return nil
	}
	return toAppError(v.errors)
}

// Required checks that a string is non-blank.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// RequiredUUID checks that a string is a valid non-nil UUID.
func (v *Validator) RequiredUUID(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
		return v
	}
	return v.OptionalUUID(field, value)
}

// OptionalUUID checks that a non-empty string is a valid non-nil UUID.
func (v *Validator) OptionalUUID(field, value string) *Validator {
	if value == "" {
		return v
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		v.AddError(field, "must be a valid UUID")
		return v
	}
	if parsed == uuid.Nil {
		v.AddError(field, "must not be the nil UUID")
	}
	return v
}

// TaskID checks that a value is a usable task or pipeline identifier.
func (v *Validator) TaskID(field, value string) *Validator {
	if !taskIDPattern.MatchString(value) {
		v.AddError(field, "must start with a letter or digit and contain only letters, digits, '_', '.' or '-'")
	}
	return v
}

// Min checks that a number is at least minVal.
func (v *Validator) Min(field string, value, minVal int) *Validator {
	if value < minVal {
		v.AddError(field, fmt.Sprintf("must be at least %d", minVal))
	}
	return v
}

// Range checks that a number is within [minVal, maxVal].
func (v *Validator) Range(field string, value, minVal, maxVal int) *Validator {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("must be between %d and %d", minVal, maxVal))
	}
	return v
}

// Positive checks that a duration is greater than zero.
func (v *Validator) Positive(field string, d time.Duration) *Validator {
	if d <= 0 {
		v.AddError(field, "must be a positive duration")
	}
	return v
}

// NotNegative checks that a duration is zero or greater.
func (v *Validator) NotNegative(field string, d time.Duration) *Validator {
	if d < 0 {
		v.AddError(field, "must not be negative")
	}
	return v
}

// OneOf checks that a non-empty value is one of the allowed values.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Custom records message when condition is false.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}

// ParseRunID validates and parses a run id path parameter.
func ParseRunID(value string) (uuid.UUID, error) {
	if strings.TrimSpace(value) == "" {
		return uuid.Nil, errors.Validation("run id is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errors.Validation("run id must be a valid UUID")
	}
	return id, nil
}

func toAppError(fields []FieldError) *errors.AppError {
	messages := make([]string, len(fields))
	for i, e := range fields {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return errors.Validation(strings.Join(messages, "; ")).
		WithDetail("fields", fields)
}
