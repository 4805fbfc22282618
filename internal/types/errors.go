package types

import (
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel errors for the engine's error surface (spec §7).
var (
	// ErrNotFound indicates a history or timestamp referenced by an
	// operation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCollision indicates an HMap insertion would map one key_sha to
	// two distinct key strings.
	ErrCollision = errors.New("key hash collision")

	// ErrNonMonotonic indicates an append timestamp is not strictly
	// greater than the current chain tail's time.
	ErrNonMonotonic = errors.New("non-monotonic timestamp")

	// ErrInvalidRange indicates delta endpoints do not both resolve to
	// live states.
	ErrInvalidRange = errors.New("invalid memento range")

	// ErrAlreadyDeleted indicates a tombstone already exists at or before
	// the requested time. Engine.Delete does not return it: it reports that
	// case as unchanged=true with a nil error.
	ErrAlreadyDeleted = errors.New("already deleted")

	// ErrConflict indicates a unique-constraint violation at the storage
	// layer that isn't a collision (e.g. a duplicate CSet key outside the
	// engine's own mutation path).
	ErrConflict = errors.New("conflict")
)

// WrapStoreError wraps a backend error with operation context, converting
// sql.ErrNoRows to ErrNotFound so every backend surfaces the same sentinel
// regardless of driver.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// WrapStoreErrorf is WrapStoreError with a formatted operation label.
func WrapStoreErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return WrapStoreError(fmt.Sprintf(format, args...), err)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCollision reports whether err is or wraps ErrCollision.
func IsCollision(err error) bool { return errors.Is(err, ErrCollision) }

// IsNonMonotonic reports whether err is or wraps ErrNonMonotonic.
func IsNonMonotonic(err error) bool { return errors.Is(err, ErrNonMonotonic) }

// IsAlreadyDeleted reports whether err is or wraps ErrAlreadyDeleted.
func IsAlreadyDeleted(err error) bool { return errors.Is(err, ErrAlreadyDeleted) }

// IsInvalidRange reports whether err is or wraps ErrInvalidRange.
func IsInvalidRange(err error) bool { return errors.Is(err, ErrInvalidRange) }
