package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/quizbank/engine/infra/repo"
	"github.com/compozy/quizbank/pkg/config"
	"github.com/compozy/quizbank/pkg/logger"
)

// MigrateCmd installs the quiz schema into the configured database.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Install the quiz schema into the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)
			log := logger.FromContext(ctx).With("driver", cfg.Database.Driver)
			log.Info("Applying migrations")
			if err := repo.Migrate(ctx, &cfg.Database); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
			log.Info("Migrations applied")
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return err
		},
	}
}
