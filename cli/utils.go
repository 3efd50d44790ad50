package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/compozy/quizbank/engine/core"
)

// extractCLIFlags collects explicitly set configuration flags keyed by flag name.
func extractCLIFlags(cmd *cobra.Command, flags map[string]any) {
	addFlag := func(flagName string, getter func(string) (any, error)) {
		if cmd.Flags().Changed(flagName) {
			if value, err := getter(flagName); err == nil {
				flags[flagName] = value
			}
		}
	}

	getString := func(name string) (any, error) { return cmd.Flags().GetString(name) }
	getBool := func(name string) (any, error) { return cmd.Flags().GetBool(name) }

	flagDefs := []struct {
		flagName string
		getter   func(string) (any, error)
	}{
		// Database flags
		{"db-driver", getString},
		{"db-conn-string", getString},
		{"db-host", getString},
		{"db-port", getString},
		{"db-user", getString},
		{"db-password", getString},
		{"db-name", getString},
		{"db-ssl-mode", getString},
		{"db-path", getString},
		{"db-auto-migrate", getBool},

		// Runtime and presentation flags
		{"log-level", getString},
		{"format", getString},
		{"no-color", getBool},
		{"actor", getString},

		// Monitoring flags
		{"metrics", getBool},
		{"metrics-output", getString},
	}

	for _, def := range flagDefs {
		addFlag(def.flagName, def.getter)
	}
}

// loadEnvFile loads environment variables from a file with security validation
func loadEnvFile(cmd *cobra.Command) (string, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return "", nil
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(pwd, envFile)
	}
	absPath, err := filepath.Abs(filepath.Clean(envFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve env file path: %w", err)
	}
	if !isPathWithinDirectory(absPath, pwd) {
		return "", fmt.Errorf("env file path '%s' is outside the project directory", envFile)
	}
	fileInfo, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return absPath, nil
		}
		return "", fmt.Errorf("failed to stat env file: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return "", fmt.Errorf("env file path '%s' is not a regular file", envFile)
	}
	if err := godotenv.Load(absPath); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", absPath, err)
	}
	return absPath, nil
}

// isPathWithinDirectory checks if a given path is within the specified directory
func isPathWithinDirectory(path, dir string) bool {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return false
	}
	if !strings.HasSuffix(absDir, string(filepath.Separator)) {
		absDir += string(filepath.Separator)
	}
	return strings.HasPrefix(absPath, absDir) || absPath == strings.TrimSuffix(absDir, string(filepath.Separator))
}

// parseActor turns the configured actor into an audit reference.
func parseActor(actor string) (*core.ID, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, nil
	}
	id, err := core.ParseID(actor)
	if err != nil {
		return nil, fmt.Errorf("invalid actor %q: %w", actor, err)
	}
	return &id, nil
}

// readJSONInput decodes a JSON document from a file, or from stdin when
// source is "-".
func readJSONInput(cmd *cobra.Command, source string, dst any) error {
	var r io.Reader
	if source == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(source)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to decode input: %w", err)
	}
	return nil
}
