// Package validation provides common validation utilities for topology and
// run configuration values.
//
// Every function returns nil or a *errors.ValidationError, which wraps
// errors.ErrInvalidConfiguration so callers can classify failures as fatal
// configuration faults before any stage instance is spawned.
package validation
