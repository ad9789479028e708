package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrStorageUnavailable marks transient failures: timeouts, lost
	// connections, lock contention. Callers may retry with backoff.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrConflictOnCreate is raised when two first writes for the same key
	// race. It never leaves this package.
	ErrConflictOnCreate = errors.New("conflict on create")
)

// unavailable wraps a driver or context error so both it and
// ErrStorageUnavailable match errors.Is
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
