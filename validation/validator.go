package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/kbukum/augmentkit/errors"
)

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
	return &Validator{
		errors: make([]FieldError, 0),
	}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns an Error if there are validation errors, nil otherwise.
func (v *Validator) Validate() *errors.Error {
	if !v.HasErrors() {
		return nil
	}

	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}

	appErr := errors.Validation(strings.Join(messages, "; "))
	appErr.Details = map[string]any{
		"fields": v.errors,
	}

	return appErr
}

// Required checks if a string is non-empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// Probability checks if a value is a valid probability in [0, 1].
func (v *Validator) Probability(field string, value float64) *Validator {
	if math.IsNaN(value) {
		v.AddError(field, "must not be NaN")
		return v
	}
	if value < 0 || value > 1 {
		v.AddError(field, fmt.Sprintf("must be between 0 and 1, got %v", value))
	}
	return v
}

// NonNegative checks if a value is a finite number >= 0.
func (v *Validator) NonNegative(field string, value float64) *Validator {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		v.AddError(field, "must be a finite number")
		return v
	}
	if value < 0 {
		v.AddError(field, fmt.Sprintf("must not be negative, got %v", value))
	}
	return v
}

// Weights checks a selection weight list: every weight finite and >= 0, with
// a positive sum.
func (v *Validator) Weights(field string, weights []float64) *Validator {
	sum := 0.0
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			v.AddError(field, fmt.Sprintf("weight %d must be a finite number", i))
			return v
		}
		if w < 0 {
			v.AddError(field, fmt.Sprintf("weight %d must not be negative, got %v", i, w))
			return v
		}
		sum += w
	}
	if len(weights) > 0 && sum <= 0 {
		v.AddError(field, "weights must not all be zero")
	}
	return v
}

// OneOf checks if a value is one of the allowed values.
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

// Custom applies a custom validation condition.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}

// Required validates a single required field and returns an error if empty.
func Required(field, value string) error {
	v := New().Required(field, value)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Probability validates a single probability value and returns an error if it
// falls outside [0, 1].
func Probability(field string, value float64) error {
	v := New().Probability(field, value)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
