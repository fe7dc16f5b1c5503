package validation

import (
	"testing"

	"github.com/pboueke/pipa/pkg/common/errors"
)

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name      string
		module    string
		field     string
		value     int
		wantError bool
	}{
		{"positive value", "test", "count", 10, false},
		{"positive value 1", "test", "count", 1, false},
		{"zero value", "test", "count", 0, true},
		{"negative value", "test", "count", -1, true},
		{"large positive", "test", "count", 1000000, false},
		{"large negative", "test", "count", -1000000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive(tt.module, tt.field, tt.value)

			if tt.wantError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				if !errors.IsValidationError(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
			} else {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
			}
		})
	}
}

func TestValidateNonNegative(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 10, false},
		{"zero value", 0, false},
		{"negative value", -1, true},
		{"large negative", -99999, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonNegative("topology", "capacity", tt.value)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateNonNegative(%d) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
		})
	}
}

func TestValidateNotBlank(t *testing.T) {
	if err := ValidateNotBlank("topology", "output", "  \t"); err == nil {
		t.Error("whitespace-only value should be rejected")
	}
	if err := ValidateNotBlank("topology", "output", "queue"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateUnique(t *testing.T) {
	seen := make(map[string]struct{})

	if err := ValidateUnique("topology", "buffer name", seen, "raw"); err != nil {
		t.Fatalf("first occurrence should pass: %v", err)
	}
	if err := ValidateUnique("topology", "buffer name", seen, "clean"); err != nil {
		t.Fatalf("distinct value should pass: %v", err)
	}

	err := ValidateUnique("topology", "buffer name", seen, "raw")
	if err == nil {
		t.Fatal("duplicate should fail")
	}

	valErr, ok := err.(*errors.ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if valErr.Reason != "duplicated" {
		t.Errorf("Reason = %q, want %q", valErr.Reason, "duplicated")
	}
	if valErr.Value != "raw" {
		t.Errorf("Value = %v, want raw", valErr.Value)
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := ValidatePositive("topology", "instances", -5)
	if err == nil {
		t.Fatal("expected error")
	}

	valErr, ok := err.(*errors.ValidationError)
	if !ok {
		t.Fatal("could not cast to ValidationError")
	}

	if valErr.Module != "topology" {
		t.Errorf("Module = %q, want %q", valErr.Module, "topology")
	}
	if valErr.Field != "instances" {
		t.Errorf("Field = %q, want %q", valErr.Field, "instances")
	}
	if valErr.Value != -5 {
		t.Errorf("Value = %v, want %v", valErr.Value, -5)
	}
	if valErr.Hint != "value must be greater than 0" {
		t.Errorf("Hint = %q, want %q", valErr.Hint, "value must be greater than 0")
	}
}

func TestValidationErrorWrapping(t *testing.T) {
	// All validation errors should wrap ErrInvalidConfiguration
	testCases := []struct {
		name string
		err  error
	}{
		{"ValidatePositive", ValidatePositive("test", "field", -1)},
		{"ValidateNonNegative", ValidateNonNegative("test", "field", -1)},
		{"ValidateNotBlank", ValidateNotBlank("test", "field", " ")},
		{"ValidateUnique", ValidateUnique("test", "field", map[string]struct{}{"a": {}}, "a")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsConfigurationError(tc.err) {
				t.Errorf("%v should wrap ErrInvalidConfiguration", tc.err)
			}
		})
	}
}
