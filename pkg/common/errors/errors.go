package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the pipa runtime

var (
	// ErrInvalidConfiguration indicates an invalid topology or settings document
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrStageInitialization indicates that a stage refused its settings
	ErrStageInitialization = errors.New("stage initialization failed")

	// ErrAborted indicates that the operator declined to start the run
	ErrAborted = errors.New("run aborted by operator")

	// ErrAlreadyRunning indicates that a pipeline was started twice
	ErrAlreadyRunning = errors.New("pipeline already started")
)

// ValidationError describes a single rejected configuration value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError wraps a failure with the module and operation that produced it.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError for the given cause.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches free-form context and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// StageInitError reports that a stage's Initialize call failed.
type StageInitError struct {
	Stage string
	Type  string
	Cause error
}

func (e *StageInitError) Error() string {
	return fmt.Sprintf("stage %q (%s): %v: %v", e.Stage, e.Type, ErrStageInitialization, e.Cause)
}

// Is matches ErrStageInitialization.
func (e *StageInitError) Is(target error) bool {
	return target == ErrStageInitialization
}

func (e *StageInitError) Unwrap() error {
	return e.Cause
}

// IsValidationError returns true if err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsConfigurationError returns true if the error was caused by an invalid
// topology or settings value
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsFatal returns true if the error must stop a run before any worker starts
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrStageInitialization) ||
		errors.Is(err, ErrAborted)
}
