package validation

import (
	"strings"

	gferrors "github.com/pboueke/pipa/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return gferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateNonNegative validates that an integer value is non-negative (>= 0).
// Returns a ValidationError if the value is negative.
func ValidateNonNegative(module, field string, value int) error {
	if value < 0 {
		return gferrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 or a positive value")
	}
	return nil
}

// ValidateNotBlank rejects empty and whitespace-only values.
func ValidateNotBlank(module, field string, value string) error {
	if strings.TrimSpace(value) == "" {
		return gferrors.NewValidationError(module, field, value, "cannot be blank").
			WithHint("provide a non-blank " + field)
	}
	return nil
}

// ValidateUnique records value in seen and fails if it was already present.
func ValidateUnique(module, field string, seen map[string]struct{}, value string) error {
	if _, dup := seen[value]; dup {
		return gferrors.NewValidationError(module, field, value, "duplicated").
			WithHint(field + " values must be unique")
	}
	seen[value] = struct{}{}
	return nil
}
