package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/compozy/quizbank/engine/store"
	"github.com/compozy/quizbank/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
)

const (
	defaultMaxConns           = 20
	defaultMinConns           = 0
	defaultHealthCheckPeriod  = 30 * time.Second
	defaultConnectTimeout     = 5 * time.Second
	defaultPingTimeout        = 3 * time.Second
	defaultHealthCheckTimeout = 1 * time.Second
	defaultTxTimeout          = 30 * time.Second
	defaultPingRetries        = 3
	pingRetryBackoff          = 200 * time.Millisecond
)

// DB is the pool surface the store needs. *pgxpool.Pool and pgxmock pools
// satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Store is the concrete PostgreSQL driver backed by pgxpool.Pool.
// It intentionally does not leak pgx types through its public API.
type Store struct {
	db                 DB
	pool               *pgxpool.Pool
	metrics            *poolMetrics
	healthCheckTimeout time.Duration
	txTimeout          time.Duration
}

var _ store.Store = (*Store)(nil)

// NewStore initializes the pgx pool using the provided config and performs a
// health check. It emits observability labels including store_driver=postgres.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("postgres: config is required")
	}
	poolCfg, err := buildPoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	pingTimeout := defaultPingTimeout
	if cfg.PingTimeout > 0 {
		pingTimeout = cfg.PingTimeout
	}
	if err := pingWithRetry(ctx, pool, pingTimeout, defaultPingRetries); err != nil {
		pool.Close()
		return nil, err
	}
	metricsTracker, mErr := newPoolMetrics(otel.GetMeterProvider().Meter(postgresMeterName), cfg.DBName)
	if mErr != nil {
		logger.FromContext(ctx).With("err", mErr).Warn("Postgres metrics not initialized; continuing without metrics")
	} else {
		metricsTracker.attach(pgxPoolSnapshot(pool))
	}
	healthCheckTimeout := defaultHealthCheckTimeout
	if cfg.HealthCheckTimeout > 0 {
		healthCheckTimeout = cfg.HealthCheckTimeout
	}
	logStoreInitialization(ctx, cfg, poolCfg.MaxConns, poolCfg.MinConns)
	s := NewStoreWithDB(pool, cfg.TxTimeout)
	s.pool = pool
	s.metrics = metricsTracker
	s.healthCheckTimeout = healthCheckTimeout
	return s, nil
}

// NewStoreWithDB wraps an existing pool. It performs no health check and
// leaves the pool open on Close.
func NewStoreWithDB(db DB, txTimeout time.Duration) *Store {
	if txTimeout <= 0 {
		txTimeout = defaultTxTimeout
	}
	return &Store{db: db, healthCheckTimeout: defaultHealthCheckTimeout, txTimeout: txTimeout}
}

// Close shuts down the connection pool.
func (s *Store) Close(ctx context.Context) error {
	if s.metrics != nil {
		s.metrics.unregister()
	}
	if s.pool == nil {
		return nil
	}
	s.pool.Close()
	logger.FromContext(ctx).Info("Postgres store closed")
	return nil
}

// Pool exposes the internal pool for driver-local usage. Do not export pgx
// types through higher layers; keep them local to the driver.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// HealthCheck verifies the connection is alive.
func (s *Store) HealthCheck(ctx context.Context) error {
	timeout := s.healthCheckTimeout
	if timeout <= 0 {
		timeout = defaultHealthCheckTimeout
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.db.Ping(hctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

// WithTransaction runs fn inside one pgx transaction. The transaction is
// committed when fn returns nil and rolled back on error or panic. Contexts
// without a deadline get the configured transaction timeout.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin transaction: %w", err)
	}
	defer func() {
		// rollback must reach the server even when ctx is done
		rbCtx := context.WithoutCancel(ctx)
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(rbCtx); rbErr != nil {
				logger.FromContext(ctx).Warn("Transaction rollback failed after panic", "error", rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(rbCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				logger.FromContext(ctx).Warn("Transaction rollback failed", "error", rbErr)
			}
		} else if cErr := tx.Commit(ctx); cErr != nil {
			err = fmt.Errorf("postgres: commit transaction: %w", cErr)
		}
	}()
	err = fn(NewTx(tx))
	return err
}

// clampIntToInt32WithLimit clamps value to [0, limit] and int32 bounds.
// Non-positive values return 0, and value is clamped to the provided limit and to MaxInt32.
func clampIntToInt32WithLimit(value int, limit int32) int32 {
	if value <= 0 || limit <= 0 {
		return 0
	}
	if value > int(math.MaxInt32) {
		if limit < math.MaxInt32 {
			return limit
		}
		return math.MaxInt32
	}
	if value >= int(limit) {
		return limit
	}
	return int32(value)
}

// buildPoolConfig parses the DSN and applies pool settings.
func buildPoolConfig(cfg *Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	maxConns, minConns := deriveConnectionBounds(cfg)
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = minConns
	if cfg.HealthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	} else {
		poolCfg.HealthCheckPeriod = defaultHealthCheckPeriod
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	} else {
		poolCfg.ConnConfig.ConnectTimeout = defaultConnectTimeout
	}
	applyLifetimeSettings(cfg, poolCfg)
	return poolCfg, nil
}

// deriveConnectionBounds computes max/min connections respecting defaults and limits.
func deriveConnectionBounds(cfg *Config) (int32, int32) {
	maxConns := int32(defaultMaxConns)
	if cfg.MaxOpenConns > 0 {
		if cfg.MaxOpenConns > int(math.MaxInt32) {
			maxConns = math.MaxInt32
		} else {
			maxConns = int32(cfg.MaxOpenConns)
		}
	}
	minConns := int32(defaultMinConns)
	if cfg.MaxIdleConns > 0 {
		if candidate := clampIntToInt32WithLimit(cfg.MaxIdleConns, maxConns); candidate > 0 {
			minConns = candidate
		}
	}
	if minConns > maxConns {
		minConns = maxConns
	}
	return maxConns, minConns
}

// applyLifetimeSettings applies connection lifetime and idle time configuration.
func applyLifetimeSettings(cfg *Config, poolCfg *pgxpool.Config) {
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// pingWithRetry pings db with exponential backoff, bounding each attempt by
// pingTimeout. Cancellation of ctx stops retrying immediately.
func pingWithRetry(ctx context.Context, db pinger, pingTimeout time.Duration, retries uint64) error {
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}
	attempt := 0
	backoff := retry.WithMaxRetries(retries, retry.NewExponential(pingRetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := db.Ping(pingCtx); err != nil {
			logger.FromContext(ctx).Debug("Postgres ping failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// logStoreInitialization emits a standardized initialization message.
func logStoreInitialization(ctx context.Context, cfg *Config, maxConns int32, minConns int32) {
	logger.FromContext(ctx).With(
		"store_driver", "postgres",
		"host", cfg.Host,
		"port", cfg.Port,
		"db_name", cfg.DBName,
		"ssl_mode", cfg.SSLMode,
		"max_conns", maxConns,
		"min_conns", minConns,
	).Info("Store initialized")
}
