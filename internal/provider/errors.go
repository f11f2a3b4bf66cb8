package provider

import (
	"errors"
	"fmt"
)

// ErrNoProviderAvailable signals that no eligible, under-quota provider
// exists for an operation. A normal terminal outcome, not a fault.
var ErrNoProviderAvailable = errors.New("no provider available")

// ErrNotFound is returned by stores when a provider or mapping is missing.
var ErrNotFound = errors.New("provider not found")

// ConfigurationError marks a provider config or limits blob that failed
// validation. Providers with one are treated as unusable.
type ConfigurationError struct {
	ProviderID string
	Field      string
	Err        error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %s: invalid %s: %v", e.ProviderID, e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// InvocationError wraps a failed call to a specific provider. The failover
// executor records it and moves to the next candidate.
type InvocationError struct {
	ProviderID string
	Operation  string
	Err        error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("provider %s: %s failed: %v", e.ProviderID, e.Operation, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// ExhaustedError is returned when every eligible provider failed in one
// failover pass. It chains the last underlying cause.
type ExhaustedError struct {
	Operation string
	Attempts  int
	LastErr   error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d providers exhausted for %s: %v", e.Attempts, e.Operation, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }
