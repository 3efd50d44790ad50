package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvBindings(t *testing.T) {
	t.Run("Should bind every leaf key of the configuration", func(t *testing.T) {
		paths := make(map[string]EnvBinding)
		for _, b := range EnvBindings() {
			paths[b.ConfigPath] = b
		}
		for _, key := range []string{
			"database.driver",
			"database.max_open_conns",
			"database.tx_timeout",
			"runtime.log_level",
			"cli.actor",
			"cli.output_format",
			"monitoring.enabled",
			"monitoring.output",
		} {
			assert.Contains(t, paths, key)
		}
		assert.NotContains(t, paths, "database")
		assert.Equal(t, "DB_DRIVER", paths["database.driver"].EnvVar)
	})

	t.Run("Should derive prefixed names from config keys", func(t *testing.T) {
		assert.Equal(t, "QUIZBANK_DATABASE_MAX_OPEN_CONNS", PrefixedEnvVar("database.max_open_conns"))
		assert.Equal(t, "QUIZBANK_CLI_ACTOR", PrefixedEnvVar("cli.actor"))
	})

	t.Run("Should return a copy of the bindings", func(t *testing.T) {
		first := EnvBindings()
		require.NotEmpty(t, first)
		first[0].ConfigPath = "mutated"
		assert.NotEqual(t, "mutated", EnvBindings()[0].ConfigPath)
	})
}

func TestConfigPathForEnv(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		path   string
		exists bool
	}{
		{"Should resolve short database names", "DB_TX_TIMEOUT", "database.tx_timeout", true},
		{"Should resolve short runtime names", "QUIZBANK_LOG_LEVEL", "runtime.log_level", true},
		{"Should resolve derived names", "QUIZBANK_DATABASE_MAX_OPEN_CONNS", "database.max_open_conns", true},
		{"Should resolve derived names for keys with short names", "QUIZBANK_RUNTIME_LOG_LEVEL", "runtime.log_level", true},
		{"Should ignore unrelated variables", "HOME", "", false},
		{"Should ignore section-only names", "QUIZBANK_DATABASE", "", false},
		{"Should ignore unknown keys under the prefix", "QUIZBANK_DATABASE_REPLICA", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := ConfigPathForEnv(tt.env)
			assert.Equal(t, tt.exists, ok)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestEnvVarsForConfigPath(t *testing.T) {
	t.Run("Should list the short name before the derived one", func(t *testing.T) {
		assert.Equal(t, []string{"DB_PATH", "QUIZBANK_DATABASE_PATH"}, EnvVarsForConfigPath("database.path"))
		assert.Equal(t, []string{"QUIZBANK_ACTOR", "QUIZBANK_CLI_ACTOR"}, EnvVarsForConfigPath("cli.actor"))
	})

	t.Run("Should return nothing for unknown keys", func(t *testing.T) {
		assert.Nil(t, EnvVarsForConfigPath("database.replica"))
		assert.Nil(t, EnvVarsForConfigPath("database"))
	})
}

func TestIsSensitiveConfigPath(t *testing.T) {
	t.Run("Should flag the database password only", func(t *testing.T) {
		assert.True(t, IsSensitiveConfigPath("database.password"))
		for _, key := range []string{"database.host", "database.user", "cli.actor", "unknown.key"} {
			assert.False(t, IsSensitiveConfigPath(key), key)
		}
	})
}
