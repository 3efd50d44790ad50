package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pressly/goose/v3"
)

const migrationLockRetryDelay = 50 * time.Millisecond

//go:embed migrations/*.sql
var migrationsFS embed.FS

var gooseInitMu sync.Mutex

// ApplyMigrations executes all embedded SQLite migrations against the database.
// File databases are migrated under an exclusive lock on "<path>.lock" so
// concurrent processes install the schema once.
func ApplyMigrations(ctx context.Context, dbPath string) error {
	cfg := &Config{Path: dbPath}
	dsn, inMemory, err := buildDSN(cfg)
	if err != nil {
		return fmt.Errorf("sqlite: prepare migrations dsn: %w", err)
	}
	if !inMemory {
		unlock, err := lockMigrations(ctx, dbPath)
		if err != nil {
			return err
		}
		defer unlock()
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("sqlite: open database for migrations: %w", err)
	}
	defer db.Close()

	if err := applyBusyTimeout(ctx, db, cfg); err != nil {
		return err
	}
	return RunMigrationsForDB(ctx, db)
}

// RunMigrationsForDB applies the embedded migrations on an open handle. Use it
// for in-memory databases, which only live as long as their store.
func RunMigrationsForDB(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	gooseInitMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseInitMu.Unlock()
	}()
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("sqlite: set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("sqlite: apply migrations: %w", err)
	}
	return nil
}

func lockMigrations(ctx context.Context, dbPath string) (func(), error) {
	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLockContext(ctx, migrationLockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("sqlite: acquire migration lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("sqlite: migration lock %s not acquired", lock.Path())
	}
	return func() { _ = lock.Unlock() }, nil
}
