package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound reports that no live record matched an identity-based
	// mutation. Reads never return it; they report absence as a value.
	ErrNotFound = errors.New("store: record not found")
	// ErrSoftDeleteUnsupported is returned by SoftDelete on tables without a
	// deleted_at column.
	ErrSoftDeleteUnsupported = errors.New("store: soft delete not supported")
	// ErrMissingID is returned when saving an entity without an identity.
	ErrMissingID = errors.New("store: entity has no id")
)

// IsCanceled reports whether err stems from a canceled or expired context.
// Callers must treat such outcomes as unknown and verify before retrying.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
