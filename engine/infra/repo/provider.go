package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/quizbank/engine/infra/postgres"
	"github.com/compozy/quizbank/engine/infra/sqlite"
	"github.com/compozy/quizbank/engine/store"
	"github.com/compozy/quizbank/pkg/config"
	"github.com/compozy/quizbank/pkg/logger"
)

// Provider owns the store selected by configuration. Callers receive the
// driver-neutral store.Store; the concrete engine never leaks out.
type Provider struct {
	store  store.Store
	driver string
}

// NewProvider opens the configured database and, when auto_migrate is set,
// installs the schema before returning.
func NewProvider(ctx context.Context, cfg *config.DatabaseConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("repo: database config is required")
	}
	switch cfg.Driver {
	case config.DriverPostgres:
		return newPostgresProvider(ctx, cfg)
	case config.DriverSQLite, "":
		return newSQLiteProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("repo: unsupported database driver %q", cfg.Driver)
	}
}

// Store returns the transactional store.
func (p *Provider) Store() store.Store { return p.store }

// Driver reports the engine backing the store.
func (p *Provider) Driver() string { return p.driver }

// Close releases the underlying connections.
func (p *Provider) Close(ctx context.Context) error {
	if p == nil || p.store == nil {
		return nil
	}
	return p.store.Close(ctx)
}

// Migrate installs the schema for the configured database without keeping a
// store open.
func Migrate(ctx context.Context, cfg *config.DatabaseConfig) error {
	if cfg == nil {
		return fmt.Errorf("repo: database config is required")
	}
	ctx, cancel := withMigrationTimeout(ctx, cfg.MigrationTimeout)
	defer cancel()
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.ApplyMigrationsWithLock(ctx, PostgresConfig(cfg).DSN())
	case config.DriverSQLite, "":
		return sqlite.ApplyMigrations(ctx, cfg.Path)
	default:
		return fmt.Errorf("repo: unsupported database driver %q", cfg.Driver)
	}
}

// PostgresConfig maps application settings onto the postgres driver config.
func PostgresConfig(cfg *config.DatabaseConfig) *postgres.Config {
	return &postgres.Config{
		ConnString:         cfg.ConnString,
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password.Value(),
		DBName:             cfg.DBName,
		SSLMode:            cfg.SSLMode,
		MaxOpenConns:       cfg.MaxOpenConns,
		MaxIdleConns:       cfg.MaxIdleConns,
		ConnMaxLifetime:    cfg.ConnMaxLifetime,
		ConnMaxIdleTime:    cfg.ConnMaxIdleTime,
		HealthCheckPeriod:  cfg.HealthCheckPeriod,
		ConnectTimeout:     cfg.ConnectTimeout,
		PingTimeout:        cfg.PingTimeout,
		HealthCheckTimeout: cfg.HealthCheckTimeout,
		TxTimeout:          cfg.TxTimeout,
	}
}

// SQLiteConfig maps application settings onto the sqlite driver config.
func SQLiteConfig(cfg *config.DatabaseConfig) *sqlite.Config {
	return &sqlite.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		BusyTimeout:     cfg.BusyTimeout,
		TxTimeout:       cfg.TxTimeout,
	}
}

func newPostgresProvider(ctx context.Context, cfg *config.DatabaseConfig) (*Provider, error) {
	pgCfg := PostgresConfig(cfg)
	if cfg.AutoMigrate {
		mctx, cancel := withMigrationTimeout(ctx, cfg.MigrationTimeout)
		err := postgres.ApplyMigrationsWithLock(mctx, pgCfg.DSN())
		cancel()
		if err != nil {
			return nil, fmt.Errorf("repo: migrate postgres: %w", err)
		}
	}
	s, err := postgres.NewStore(ctx, pgCfg)
	if err != nil {
		return nil, err
	}
	return &Provider{store: s, driver: config.DriverPostgres}, nil
}

func newSQLiteProvider(ctx context.Context, cfg *config.DatabaseConfig) (*Provider, error) {
	s, err := sqlite.NewStore(ctx, SQLiteConfig(cfg))
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		mctx, cancel := withMigrationTimeout(ctx, cfg.MigrationTimeout)
		err := sqlite.RunMigrationsForDB(mctx, s.DB())
		cancel()
		if err != nil {
			if cerr := s.Close(ctx); cerr != nil {
				logger.FromContext(ctx).Warn("Failed to close store after migration error", "error", cerr)
			}
			return nil, fmt.Errorf("repo: migrate sqlite: %w", err)
		}
	}
	return &Provider{store: s, driver: config.DriverSQLite}, nil
}

func withMigrationTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
