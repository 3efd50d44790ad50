package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/quizbank/engine/infra/monitoring"
	"github.com/compozy/quizbank/engine/infra/repo"
	"github.com/compozy/quizbank/engine/store"
	"github.com/compozy/quizbank/pkg/config"
	"github.com/compozy/quizbank/pkg/logger"
)

const defaultConfigFile = "quizbank.yaml"

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quizbank",
		Short:         "Manage quiz tests stored in PostgreSQL or SQLite",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return flushMonitoring(cmd)
		},
	}

	addGlobalFlags(root)
	root.AddCommand(
		ConfigCmd(),
		MigrateCmd(),
		TestCmd(),
		VersionCmd(),
	)

	return root
}

func addGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", defaultConfigFile, "Path to the YAML configuration file")
	flags.String("env-file", ".env", "Path to the environment variables file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.Bool("log-source", false, "Include source locations in logs")
	flags.String("format", OutputFormatText, "Output format (json, text)")
	flags.Bool("no-color", false, "Disable colored output")
	flags.String("actor", "", "Actor ID recorded in audit columns")
	flags.Bool("metrics", false, "Write a Prometheus snapshot of store metrics after the command")
	flags.String("metrics-output", "-", "Metrics snapshot file, or - for stderr")

	flags.String("db-driver", config.DriverSQLite, "Database driver (postgres, sqlite)")
	flags.String("db-conn-string", "", "PostgreSQL connection string")
	flags.String("db-host", "", "PostgreSQL host")
	flags.String("db-port", "", "PostgreSQL port")
	flags.String("db-user", "", "PostgreSQL user")
	flags.String("db-password", "", "PostgreSQL password")
	flags.String("db-name", "", "PostgreSQL database name")
	flags.String("db-ssl-mode", "", "PostgreSQL sslmode")
	flags.String("db-path", "", "SQLite database file or :memory:")
	flags.Bool("db-auto-migrate", true, "Install the schema when opening the database")
}

// SetupGlobalConfig loads configuration for cmd, installs the logger and
// attaches both to the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, _, err := loadConfigWithSources(ctx, cmd, configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	_, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	logger.SetupLogger(cfg.Runtime.LogLevel, logJSON, logSource)
	ctx = logger.ContextWithLogger(ctx, logger.GetDefault())
	ctx = config.ContextWithConfig(ctx, cfg)
	service := monitoring.NewMonitoringServiceWithFallback(ctx, &monitoring.Config{
		Enabled: cfg.Monitoring.Enabled,
		Output:  cfg.Monitoring.Output,
	})
	service.SetAsGlobal()
	ctx = context.WithValue(ctx, monitoringCtxKey{}, service)
	cmd.SetContext(ctx)
	return nil
}

type monitoringCtxKey struct{}

// flushMonitoring writes the metrics snapshot and releases the meter provider.
func flushMonitoring(cmd *cobra.Command) error {
	ctx := cmd.Context()
	service, ok := ctx.Value(monitoringCtxKey{}).(*monitoring.Service)
	if !ok {
		return nil
	}
	if err := service.Flush(ctx); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return service.Shutdown(ctx)
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, s store.Store) error) (err error) {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	provider, err := repo.NewProvider(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := provider.Close(ctx); cerr != nil {
			logger.FromContext(ctx).Warn("Failed to close store", "error", cerr)
		}
	}()
	return fn(ctx, provider.Store())
}

func printerFor(cmd *cobra.Command) *Printer {
	cfg := config.FromContext(cmd.Context())
	return NewPrinter(cmd.OutOrStdout(), cfg.CLI.OutputFormat, cfg.CLI.NoColor)
}
