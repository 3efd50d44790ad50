package config

import (
	"context"
	"encoding/json"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the complete configuration for quizbank.
// It provides type-safe access to all configuration values with validation.
type Config struct {
	Database   DatabaseConfig   `koanf:"database"   validate:"required"`
	Runtime    RuntimeConfig    `koanf:"runtime"    validate:"required"`
	CLI        CLIConfig        `koanf:"cli"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
}

// DatabaseConfig selects the storage engine and carries its connection settings.
type DatabaseConfig struct {
	Driver             string          `koanf:"driver"               env:"DB_DRIVER"               validate:"required,oneof=postgres sqlite"`
	ConnString         string          `koanf:"conn_string"          env:"DB_CONN_STRING"`
	Host               string          `koanf:"host"                 env:"DB_HOST"`
	Port               string          `koanf:"port"                 env:"DB_PORT"`
	User               string          `koanf:"user"                 env:"DB_USER"`
	Password           SensitiveString `koanf:"password"             env:"DB_PASSWORD"             sensitive:"true"`
	DBName             string          `koanf:"name"                 env:"DB_NAME"`
	SSLMode            string          `koanf:"ssl_mode"             env:"DB_SSL_MODE"             validate:"omitempty,ssl_mode"`
	Path               string          `koanf:"path"                 env:"DB_PATH"`
	AutoMigrate        bool            `koanf:"auto_migrate"         env:"DB_AUTO_MIGRATE"`
	MigrationTimeout   time.Duration   `koanf:"migration_timeout"    env:"DB_MIGRATION_TIMEOUT"`
	MaxOpenConns       int             `koanf:"max_open_conns"       env:"DB_MAX_OPEN_CONNS"       validate:"min=0"`
	MaxIdleConns       int             `koanf:"max_idle_conns"       env:"DB_MAX_IDLE_CONNS"       validate:"min=0"`
	ConnMaxLifetime    time.Duration   `koanf:"conn_max_lifetime"    env:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime    time.Duration   `koanf:"conn_max_idle_time"   env:"DB_CONN_MAX_IDLE_TIME"`
	PingTimeout        time.Duration   `koanf:"ping_timeout"         env:"DB_PING_TIMEOUT"`
	HealthCheckTimeout time.Duration   `koanf:"health_check_timeout" env:"DB_HEALTH_CHECK_TIMEOUT"`
	HealthCheckPeriod  time.Duration   `koanf:"health_check_period"  env:"DB_HEALTH_CHECK_PERIOD"`
	ConnectTimeout     time.Duration   `koanf:"connect_timeout"      env:"DB_CONNECT_TIMEOUT"`
	BusyTimeout        time.Duration   `koanf:"busy_timeout"         env:"DB_BUSY_TIMEOUT"`
	TxTimeout          time.Duration   `koanf:"tx_timeout"           env:"DB_TX_TIMEOUT"`
}

// RuntimeConfig contains process-wide behavior.
type RuntimeConfig struct {
	Environment string `koanf:"environment" env:"QUIZBANK_ENV"       validate:"oneof=development staging production"`
	LogLevel    string `koanf:"log_level"   env:"QUIZBANK_LOG_LEVEL" validate:"oneof=debug info warn error disabled"`
}

// CLIConfig contains command line presentation settings.
type CLIConfig struct {
	OutputFormat string `koanf:"output_format" env:"QUIZBANK_OUTPUT_FORMAT" validate:"oneof=json text"`
	NoColor      bool   `koanf:"no_color"      env:"NO_COLOR"`
	Actor        string `koanf:"actor"         env:"QUIZBANK_ACTOR"`
}

// MonitoringConfig controls the Prometheus snapshot of store metrics written
// after each command.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"MONITORING_ENABLED"`
	Output  string `koanf:"output"  env:"MONITORING_OUTPUT" validate:"required"`
}

// Service defines the configuration loading contract.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns which source provided a configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
	// Close releases any resources held by the source.
	Close() error
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration using the default service.
// This is a convenience function for simple configuration loading.
func Load() (*Config, error) {
	return NewService().Load(context.Background(), NewEnvProvider())
}

// Default returns the built-in configuration: a local SQLite file with the
// schema installed on first use.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:             DriverSQLite,
			Host:               "localhost",
			Port:               "5432",
			User:               "postgres",
			DBName:             "quizbank",
			SSLMode:            "disable",
			Path:               "quizbank.db",
			AutoMigrate:        true,
			MigrationTimeout:   45 * time.Second,
			MaxOpenConns:       20,
			MaxIdleConns:       2,
			ConnMaxLifetime:    30 * time.Minute,
			ConnMaxIdleTime:    5 * time.Minute,
			PingTimeout:        3 * time.Second,
			HealthCheckTimeout: time.Second,
			HealthCheckPeriod:  30 * time.Second,
			ConnectTimeout:     5 * time.Second,
			BusyTimeout:        5 * time.Second,
			TxTimeout:          30 * time.Second,
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
		},
		CLI: CLIConfig{
			OutputFormat: "text",
		},
		Monitoring: MonitoringConfig{
			Enabled: false,
			Output:  "-",
		},
	}
}

// SensitiveString holds a secret that must never appear in logs or output.
type SensitiveString string

const redacted = "[REDACTED]"

// String redacts non-empty values.
func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// Value returns the actual secret.
func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
