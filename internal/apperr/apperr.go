// Package apperr defines the error taxonomy shared by the session core and its
// HTTP surface: validation, not-found, persistence and delivery failures.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is wrapped by NotFound; match with errors.Is.
var ErrNotFound = errors.New("not found")

// NotFound returns an ErrNotFound naming the missing entity.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// ValidationError reports malformed or disallowed input, keyed by field.
type ValidationError struct {
	Fields map[string]string
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PersistenceError wraps a storage failure. The mutation that hit it was not broadcast.
type PersistenceError struct {
	Op  string
	Err error
}

// Persistence wraps err unless it is already part of the taxonomy.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.Is(err, ErrNotFound) || errors.As(err, &ve) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError is one connection's failed send during a broadcast. It is only logged.
type DeliveryError struct {
	ConnID string
	Err    error
}

func (e *DeliveryError) Error() string { return "deliver to " + e.ConnID + ": " + e.Err.Error() }

func (e *DeliveryError) Unwrap() error { return e.Err }
