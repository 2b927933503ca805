package slanger

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTerm is returned when the term is empty after trimming.
	ErrEmptyTerm = &ValidationError{Field: "term", Message: "must not be empty"}

	// ErrNotConfigured indicates the provider has no usable credentials.
	// It is never retried.
	ErrNotConfigured = errors.New("provider not configured")
)

// ValidationError indicates invalid caller input. It is the only error
// Resolve ever returns.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ProviderError indicates an AI provider failure (API error, rate limit, etc.).
type ProviderError struct {
	Message   string
	Cause     error
	Retryable bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache operation failure.
type CacheError struct {
	Op    string
	Key   string
	Cause error
}

func (e *CacheError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("cache error: %s %q: %v", e.Op, e.Key, e.Cause)
	}
	return fmt.Sprintf("cache error: %s: %v", e.Op, e.Cause)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}

// StoreError indicates a record store failure.
type StoreError struct {
	Op    string
	Term  string
	Cause error
}

func (e *StoreError) Error() string {
	if e.Term != "" {
		return fmt.Sprintf("store error: %s %q: %v", e.Op, e.Term, e.Cause)
	}
	return fmt.Sprintf("store error: %s: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// ProcessorError indicates content could not be parsed or rendered.
type ProcessorError struct {
	Message     string
	Cause       error
	ContentType string
}

func (e *ProcessorError) Error() string {
	msg := fmt.Sprintf("processor error (%s): %s", e.ContentType, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProcessorError) Unwrap() error {
	return e.Cause
}
