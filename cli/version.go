package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/quizbank/pkg/config"
	"github.com/compozy/quizbank/pkg/version"
)

// VersionCmd prints build information.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			cfg := config.FromContext(cmd.Context())
			if cfg.CLI.OutputFormat == OutputFormatJSON {
				return NewPrinter(cmd.OutOrStdout(), OutputFormatJSON, cfg.CLI.NoColor).JSON(info)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "quizbank %s (commit %s, built %s, %s)\n",
				info.Version, info.CommitHash, info.BuildDate, info.GoVersion)
			return err
		},
	}
}
