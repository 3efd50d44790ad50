package store

import (
	"context"

	"github.com/Masterminds/squirrel"
)

// Tx is the transaction context shared by every Accessor taking part in one
// logical operation. It is handed to accessors at construction and is owned
// by whoever began it. A Tx represents one sequential unit of work and is not
// safe for concurrent use.
type Tx interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	// Select scans all result rows into dst, a pointer to a slice.
	Select(ctx context.Context, dst any, query string, args ...any) error
	// Placeholder is the bind-parameter dialect of the underlying engine.
	Placeholder() squirrel.PlaceholderFormat
}

// Store defines the transactional boundary for data access. Implementations
// manage begin/commit/rollback internally and hand the active Tx to fn.
type Store interface {
	// WithTransaction executes fn within a single transaction. If fn returns
	// an error or panics, the transaction is rolled back; otherwise it is
	// committed.
	WithTransaction(ctx context.Context, fn func(tx Tx) error) error
	// HealthCheck verifies the engine is reachable.
	HealthCheck(ctx context.Context) error
	// Close releases the engine's connections.
	Close(ctx context.Context) error
}
