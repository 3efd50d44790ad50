package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/compozy/quizbank/pkg/config"
)

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration inspection and validation",
	}

	cmd.AddCommand(
		configShowCmd(),
		configValidateCmd(),
		configEnvCmd(),
	)

	return cmd
}

// configShowCmd shows the current configuration with source information
func configShowCmd() *cobra.Command {
	var (
		showSources bool
		asYAML      bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration values and their sources",
		Long: `Display the effective configuration with optional source information.
This command shows which source (CLI, YAML, environment, or default) provided each value.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configFile, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			cfg, sources, err := loadConfigWithSources(cmd.Context(), cmd, configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if !showSources {
				sources = nil
			}
			switch {
			case asYAML:
				return outputYAML(cmd.OutOrStdout(), cfg, sources)
			case cfg.CLI.OutputFormat == OutputFormatJSON:
				return NewPrinter(cmd.OutOrStdout(), OutputFormatJSON, cfg.CLI.NoColor).
					JSON(configDocument(cfg, sources))
			default:
				return outputTable(cmd.OutOrStdout(), cfg, sources, showSources)
			}
		},
	}

	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Show configuration sources")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the configuration as YAML")
	return cmd
}

// configEnvCmd lists the environment variables that set each configuration key
func configEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the environment variables each configuration key reads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bindings := config.EnvBindings()
			out := cmd.OutOrStdout()
			cfg := config.FromContext(cmd.Context())
			if cfg.CLI.OutputFormat == OutputFormatJSON {
				rows := make([]map[string]any, 0, len(bindings))
				for _, b := range bindings {
					rows = append(rows, map[string]any{
						"key":       b.ConfigPath,
						"env":       config.EnvVarsForConfigPath(b.ConfigPath),
						"sensitive": b.Sensitive,
					})
				}
				return NewPrinter(out, OutputFormatJSON, cfg.CLI.NoColor).JSON(rows)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tENV\tPREFIXED")
			for _, b := range bindings {
				short := b.EnvVar
				if short == "" {
					short = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", b.ConfigPath, short, b.PrefixedVar())
			}
			return tw.Flush()
		},
	}
}

// configValidateCmd validates the effective configuration
func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Long:  `Load the configuration from every source and check it for invalid or missing values.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configFile, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			if _, _, err := loadConfigWithSources(cmd.Context(), cmd, configFile); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return err
		},
	}
}

// loadConfigWithSources loads configuration and tracks sources
func loadConfigWithSources(
	ctx context.Context,
	cmd *cobra.Command,
	configFile string,
) (*config.Config, map[string]config.SourceType, error) {
	service := config.NewService()

	sources := []config.Source{
		config.NewDefaultProvider(),
		config.NewEnvProvider(),
	}
	if configFile != "" {
		sources = append(sources, config.NewYAMLProvider(configFile))
	}
	cliFlags := make(map[string]any)
	extractCLIFlags(cmd, cliFlags)
	if len(cliFlags) > 0 {
		sources = append(sources, config.NewCLIProvider(cliFlags))
	}

	cfg, err := service.Load(ctx, sources...)
	if err != nil {
		return nil, nil, err
	}

	sourceMap := make(map[string]config.SourceType)
	collectSourcesRecursively(service, "", cfg, sourceMap)

	return cfg, sourceMap, nil
}

// collectSourcesRecursively walks through the configuration struct and collects source information
func collectSourcesRecursively(
	service config.Service,
	prefix string,
	v any,
	sourceMap map[string]config.SourceType,
) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if source := service.GetSource(key); source != config.SourceDefault {
			sourceMap[key] = source
		}
		fieldVal := val.Field(i)
		if fieldVal.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Duration(0)) {
			collectSourcesRecursively(service, key, fieldVal.Interface(), sourceMap)
		}
	}
}

func configDocument(cfg *config.Config, sources map[string]config.SourceType) map[string]any {
	output := map[string]any{"config": flattenConfig(cfg)}
	if len(sources) > 0 {
		output["sources"] = sources
	}
	return output
}

// outputYAML outputs configuration as YAML
func outputYAML(w io.Writer, cfg *config.Config, sources map[string]config.SourceType) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(configDocument(cfg, sources)); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return encoder.Close()
}

// outputTable outputs configuration as a table
func outputTable(w io.Writer, cfg *config.Config, sources map[string]config.SourceType, showSources bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	flatMap := flattenConfig(cfg)
	keys := make([]string, 0, len(flatMap))
	for k := range flatMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if showSources {
		fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
		fmt.Fprintln(tw, "---\t-----\t------")
	} else {
		fmt.Fprintln(tw, "KEY\tVALUE")
		fmt.Fprintln(tw, "---\t-----")
	}
	for _, key := range keys {
		value := flatMap[key]
		if showSources {
			source := sources[key]
			if source == "" {
				source = config.SourceDefault
			}
			fmt.Fprintf(tw, "%s\t%v\t%s\n", key, value, source)
		} else {
			fmt.Fprintf(tw, "%s\t%v\n", key, value)
		}
	}
	return tw.Flush()
}

// flattenConfig converts nested config to flat key-value map with secrets redacted
func flattenConfig(cfg *config.Config) map[string]string {
	result := make(map[string]string)
	flattenDatabaseConfig(cfg, result)
	flattenRuntimeConfig(cfg, result)
	flattenCLIConfig(cfg, result)
	result["monitoring.enabled"] = strconv.FormatBool(cfg.Monitoring.Enabled)
	result["monitoring.output"] = cfg.Monitoring.Output
	for key, value := range result {
		if value != "" && config.IsSensitiveConfigPath(key) {
			result[key] = "[REDACTED]"
		}
	}
	return result
}

// flattenDatabaseConfig flattens database configuration
func flattenDatabaseConfig(cfg *config.Config, result map[string]string) {
	db := cfg.Database
	result["database.driver"] = db.Driver
	if db.ConnString != "" {
		result["database.conn_string"] = redactURL(db.ConnString)
	}
	result["database.host"] = db.Host
	result["database.port"] = db.Port
	result["database.user"] = db.User
	result["database.password"] = db.Password.Value()
	result["database.name"] = db.DBName
	result["database.ssl_mode"] = db.SSLMode
	result["database.path"] = db.Path
	result["database.auto_migrate"] = strconv.FormatBool(db.AutoMigrate)
	result["database.migration_timeout"] = db.MigrationTimeout.String()
	result["database.max_open_conns"] = strconv.Itoa(db.MaxOpenConns)
	result["database.max_idle_conns"] = strconv.Itoa(db.MaxIdleConns)
	result["database.conn_max_lifetime"] = db.ConnMaxLifetime.String()
	result["database.conn_max_idle_time"] = db.ConnMaxIdleTime.String()
	result["database.busy_timeout"] = db.BusyTimeout.String()
	result["database.tx_timeout"] = db.TxTimeout.String()
}

// flattenRuntimeConfig flattens runtime configuration
func flattenRuntimeConfig(cfg *config.Config, result map[string]string) {
	result["runtime.environment"] = cfg.Runtime.Environment
	result["runtime.log_level"] = cfg.Runtime.LogLevel
}

// flattenCLIConfig flattens CLI configuration
func flattenCLIConfig(cfg *config.Config, result map[string]string) {
	result["cli.output_format"] = cfg.CLI.OutputFormat
	result["cli.no_color"] = strconv.FormatBool(cfg.CLI.NoColor)
	result["cli.actor"] = cfg.CLI.Actor
}

// redactURL hides the password embedded in a connection URL
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[REDACTED]"
	}
	return u.Redacted()
}
