package errorx

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds shared by stores, the workflow and the HTTP layer.
// Match them with errors.Is; concrete errors wrap one of these.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrGateway       = errors.New("payment gateway error")
	ErrConfiguration = errors.New("configuration error")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
)

// ValidationError carries per-field messages so the caller can correct the request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation builds a ValidationError for a single field.
func Validation(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// NotFound wraps ErrNotFound with the kind of entity and its key.
func NotFound(entity, key string) error {
	return fmt.Errorf("%s %q: %w", entity, key, ErrNotFound)
}

// Gateway wraps a payment provider failure.
func Gateway(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrGateway, err)
}

// Configuration reports a missing or invalid external-service setting.
func Configuration(msg string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, msg)
}

// Conflict reports a concurrent or replayed write that could not be applied.
func Conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

// Unauthorized reports missing or bad admin credentials.
func Unauthorized(msg string) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
}
