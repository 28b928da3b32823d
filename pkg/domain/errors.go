package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the sentinel matched by every NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPosition is returned for positions that are not finite or
	// fall outside [0,100].
	ErrInvalidPosition = errors.New("position must be finite and within [0,100]")
)

// Lookup kinds reported by NotFoundError.
const (
	KindScene = "scene"
	KindZone  = "zone"
	KindItem  = "item"
)

// NotFoundError is returned by registry lookups that are expected to always
// resolve. A NotFoundError indicates a configuration defect, not a race.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Unwrap lets errors.Is match ErrNotFound.
func (e NotFoundError) Unwrap() error { return ErrNotFound }

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
