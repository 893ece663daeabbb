package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. Use errors.Is to discriminate.
var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrBackend        = errors.New("backend failure")
	ErrPartialFailure = errors.New("partial failure")
)

// NotFound reports that an identified entity is absent.
func NotFound(entity, id string) error {
	if id == "" {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// Validation reports malformed input for a single field.
func Validation(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrValidation)
}

// Backend tags a data store failure, keeping the original cause reachable
// through errors.Is/As. Errors already classified pass through unchanged.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrBackend) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrBackend, err)
}

// PartialFailure tags a companion write (audit, archive) that failed after
// the primary write succeeded.
func PartialFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPartialFailure, err)
}
