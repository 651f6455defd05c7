package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrProjectNotFound, ErrPageNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., two pages with the same page number).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored, or references an entity that does not exist.
	// Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrProjectNotFound indicates that the requested project does not exist in the store.
	ErrProjectNotFound = fmt.Errorf("%w: project", ErrNotFound)

	// ErrPhotoNotFound indicates that the requested photo does not exist in the store.
	ErrPhotoNotFound = fmt.Errorf("%w: photo", ErrNotFound)

	// ErrPageNotFound indicates that the requested page does not exist in the store.
	ErrPageNotFound = fmt.Errorf("%w: page", ErrNotFound)

	// ErrIllustrationNotFound indicates that the requested illustration does not exist in the store.
	ErrIllustrationNotFound = fmt.Errorf("%w: illustration", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrPageNumberExists indicates that the project already has a page with
	// the given page number.
	ErrPageNumberExists = fmt.Errorf("%w: page number", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
