package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// envProvider marks environment variables as a source. The values themselves
// are read by koanf's env provider in loader.go.
type envProvider struct{}

// NewEnvProvider creates a new environment variable configuration source.
func NewEnvProvider() Source {
	return &envProvider{}
}

// Load returns empty map as environment loading is handled natively by koanf.
func (e *envProvider) Load() (map[string]any, error) {
	return make(map[string]any), nil
}

// Type returns the source type identifier.
func (e *envProvider) Type() SourceType {
	return SourceEnv
}

// Close releases any resources held by the source.
func (e *envProvider) Close() error {
	return nil
}

// cliProvider implements Source interface for CLI flags.
type cliProvider struct {
	flags map[string]any
}

// flagToPath maps CLI flag names to configuration paths.
var flagToPath = map[string]string{
	"db-driver":       "database.driver",
	"db-conn-string":  "database.conn_string",
	"db-host":         "database.host",
	"db-port":         "database.port",
	"db-user":         "database.user",
	"db-password":     "database.password",
	"db-name":         "database.name",
	"db-ssl-mode":     "database.ssl_mode",
	"db-path":         "database.path",
	"db-auto-migrate": "database.auto_migrate",
	"log-level":       "runtime.log_level",
	"format":          "cli.output_format",
	"no-color":        "cli.no_color",
	"actor":           "cli.actor",
	"metrics":         "monitoring.enabled",
	"metrics-output":  "monitoring.output",
}

// NewCLIProvider creates a new CLI flags configuration source.
func NewCLIProvider(flags map[string]any) Source {
	return &cliProvider{
		flags: flags,
	}
}

// Load returns the CLI flags as configuration data.
func (c *cliProvider) Load() (map[string]any, error) {
	if c.flags == nil {
		return make(map[string]any), nil
	}
	config := make(map[string]any)
	for key, value := range c.flags {
		if path, ok := flagToPath[key]; ok {
			if err := setNested(config, path, value); err != nil {
				return nil, fmt.Errorf("failed to set CLI flag %s: %w", key, err)
			}
		}
	}
	return config, nil
}

// Type returns the source type identifier.
func (c *cliProvider) Type() SourceType {
	return SourceCLI
}

// Close releases any resources held by the source.
func (c *cliProvider) Close() error {
	return nil
}

// setNested sets a value in a nested map structure using dot notation.
// It returns an error if a path conflict is encountered.
func setNested(m map[string]any, path string, value any) error {
	if path == "" {
		return nil // Don't set anything for empty path
	}
	parts := strings.Split(path, ".")
	current := m
	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if _, exists := current[part]; !exists {
			current[part] = make(map[string]any)
		}

		next, ok := current[part].(map[string]any)
		if !ok {
			return fmt.Errorf("configuration conflict: key %q is not a map", strings.Join(parts[:i+1], "."))
		}
		current = next
	}
	if len(parts) > 0 {
		current[parts[len(parts)-1]] = value
	}
	return nil
}

// yamlProvider implements Source interface for YAML files.
type yamlProvider struct {
	path string
}

// NewYAMLProvider creates a new YAML file configuration source.
func NewYAMLProvider(path string) Source {
	return &yamlProvider{
		path: path,
	}
}

// Load reads configuration from a YAML file. A missing file yields no values.
func (y *yamlProvider) Load() (map[string]any, error) {
	data, err := os.ReadFile(y.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, fmt.Errorf("failed to read YAML file: %w", err)
	}
	var config map[string]any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file: %w", err)
	}
	filtered := filterNilValues(config)
	return filtered, nil
}

// filterNilValues recursively removes nil values from a map
// This prevents koanf from overriding existing values with nil
func filterNilValues(m map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range m {
		if v == nil {
			continue
		}
		if nestedMap, ok := v.(map[string]any); ok {
			filtered := filterNilValues(nestedMap)
			if len(filtered) > 0 {
				result[k] = filtered
			}
		} else {
			result[k] = v
		}
	}
	return result
}

// Type returns the source type identifier.
func (y *yamlProvider) Type() SourceType {
	return SourceYAML
}

// Close releases any resources held by the source.
func (y *yamlProvider) Close() error {
	return nil
}

// defaultProvider implements Source interface for default configuration values.
type defaultProvider struct {
	defaults map[string]any
}

// NewDefaultProvider creates a new default configuration source.
func NewDefaultProvider() Source {
	return &defaultProvider{
		defaults: createDefaultMap(),
	}
}

// Load returns the default configuration values.
func (d *defaultProvider) Load() (map[string]any, error) {
	return d.defaults, nil
}

// Type returns the source type identifier.
func (d *defaultProvider) Type() SourceType {
	return SourceDefault
}

// Close releases any resources held by the source.
func (d *defaultProvider) Close() error {
	return nil
}

// createDefaultMap creates a map representation of the default configuration.
func createDefaultMap() map[string]any {
	d := Default()
	db := d.Database
	return map[string]any{
		"database": map[string]any{
			"driver":               db.Driver,
			"conn_string":          db.ConnString,
			"host":                 db.Host,
			"port":                 db.Port,
			"user":                 db.User,
			"password":             db.Password.Value(),
			"name":                 db.DBName,
			"ssl_mode":             db.SSLMode,
			"path":                 db.Path,
			"auto_migrate":         db.AutoMigrate,
			"migration_timeout":    db.MigrationTimeout.String(),
			"max_open_conns":       db.MaxOpenConns,
			"max_idle_conns":       db.MaxIdleConns,
			"conn_max_lifetime":    db.ConnMaxLifetime.String(),
			"conn_max_idle_time":   db.ConnMaxIdleTime.String(),
			"ping_timeout":         db.PingTimeout.String(),
			"health_check_timeout": db.HealthCheckTimeout.String(),
			"health_check_period":  db.HealthCheckPeriod.String(),
			"connect_timeout":      db.ConnectTimeout.String(),
			"busy_timeout":         db.BusyTimeout.String(),
			"tx_timeout":           db.TxTimeout.String(),
		},
		"runtime": map[string]any{
			"environment": d.Runtime.Environment,
			"log_level":   d.Runtime.LogLevel,
		},
		"cli": map[string]any{
			"output_format": d.CLI.OutputFormat,
			"no_color":      d.CLI.NoColor,
			"actor":         d.CLI.Actor,
		},
		"monitoring": map[string]any{
			"enabled": d.Monitoring.Enabled,
			"output":  d.Monitoring.Output,
		},
	}
}
