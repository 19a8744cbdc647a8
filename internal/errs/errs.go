// Package errs provides the error types used across the action. Sentinels
// classify remote-state conditions the reconciler recovers from locally;
// typed errors carry enough context for the operator to resume manually.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for remote-state conditions.
var (
	// ErrRefNotFound indicates the requested git ref does not exist.
	ErrRefNotFound = errors.New("ref not found")

	// ErrRefExists indicates a ref creation collided with an existing ref.
	ErrRefExists = errors.New("ref already exists")

	// ErrNotFastForward indicates a non-force ref update was rejected
	// because the remote ref has diverged.
	ErrNotFastForward = errors.New("ref update is not a fast-forward")

	// ErrFileNotFound indicates the file does not exist on the given ref.
	ErrFileNotFound = errors.New("file not found on ref")
)

// ConfigError represents a fatal configuration problem. The run aborts
// before any remote call when one is returned.
type ConfigError struct {
	Field   string
	Value   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, value, message string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Message: message}
}

// IOError represents a local document read or write failure.
type IOError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *IOError) Unwrap() error {
	return e.Err
}

// StepError represents a hard failure of one reconciliation step. Committed
// records whether document content had already been committed remotely when
// the step failed, so the operator knows what state the branch is in.
type StepError struct {
	Step      string
	Committed bool
	Err       error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.Committed {
		return fmt.Sprintf("%s failed (content changes were already committed): %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *StepError) Unwrap() error {
	return e.Err
}

// IsConfig checks if an error is a configuration error.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
