package domain

import "fmt"

// Error types for consistent error handling across the service.
// Resolution misses (no account, no supplier, no settlement match) are
// deliberately NOT errors; only I/O and configuration problems are.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrConfiguration indicates invalid or missing configuration. Fatal at
// startup, before any document is processed.
type ErrConfiguration struct {
	Field   string
	Message string
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("configuration error on '%s': %s", e.Field, e.Message)
}
