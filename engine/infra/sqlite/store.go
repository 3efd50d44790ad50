package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/compozy/quizbank/engine/store"
	"github.com/compozy/quizbank/pkg/logger"
	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"
)

const (
	driverName                = "sqlite"
	memoryPath                = ":memory:"
	defaultBusyTimeout        = 5 * time.Second
	defaultTxTimeout          = 30 * time.Second
	defaultHealthCheckTimeout = 1 * time.Second
)

// Store is the SQLite driver backed by database/sql.
type Store struct {
	db        *sql.DB
	path      string
	txTimeout time.Duration
}

var _ store.Store = (*Store)(nil)

// NewStore opens the database described by cfg and verifies the connection.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sqlite: config is required")
	}
	dsn, inMemory, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	configurePool(db, cfg, inMemory)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if err := applyBusyTimeout(ctx, db, cfg); err != nil {
		db.Close()
		return nil, err
	}
	txTimeout := defaultTxTimeout
	if cfg.TxTimeout > 0 {
		txTimeout = cfg.TxTimeout
	}
	logger.FromContext(ctx).With(
		"store_driver", "sqlite",
		"path", cfg.Path,
		"in_memory", inMemory,
	).Info("Store initialized")
	return &Store{db: db, path: cfg.Path, txTimeout: txTimeout}, nil
}

// DB exposes the underlying handle for driver-local usage such as migrations.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	logger.FromContext(ctx).Info("SQLite store closed", "path", s.path)
	return nil
}

// HealthCheck verifies the database answers a ping.
func (s *Store) HealthCheck(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, defaultHealthCheckTimeout)
	defer cancel()
	if err := s.db.PingContext(hctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}

// WithTransaction runs fn inside one database transaction. The transaction is
// committed when fn returns nil and rolled back on error or panic.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil {
				logger.FromContext(ctx).Warn("Transaction rollback failed after panic", "error", rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				logger.FromContext(ctx).Warn("Transaction rollback failed", "error", rbErr)
			}
		} else if cErr := sqlTx.Commit(); cErr != nil {
			err = fmt.Errorf("sqlite: commit transaction: %w", cErr)
		}
	}()
	err = fn(NewTx(sqlTx))
	return err
}

// buildDSN renders cfg as a modernc DSN with the pragmas every connection
// needs. The boolean reports whether the database lives in memory.
func buildDSN(cfg *Config) (string, bool, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return "", false, fmt.Errorf("sqlite: path is required")
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	pragmas := []string{
		"_pragma=foreign_keys(ON)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", busy.Milliseconds()),
		"_time_format=sqlite",
	}
	if path == memoryPath {
		return "file::memory:?cache=shared&" + strings.Join(pragmas, "&"), true, nil
	}
	pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	return "file:" + path + "?" + strings.Join(pragmas, "&"), false, nil
}

func configurePool(db *sql.DB, cfg *Config, inMemory bool) {
	// a shared in-memory database disappears with its last connection
	if inMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		return
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func applyBusyTimeout(ctx context.Context, db *sql.DB, cfg *Config) error {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds())); err != nil {
		return fmt.Errorf("sqlite: set busy timeout: %w", err)
	}
	return nil
}
