package monitoring

import (
	"fmt"
	"strings"
)

// StderrOutput sends the metrics snapshot to standard error.
const StderrOutput = "-"

// Config holds configuration for monitoring service
type Config struct {
	Enabled bool
	// Output is a file path for the exposition snapshot, or "-" for stderr.
	Output string
}

// DefaultConfig returns default monitoring configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled: false,
		Output:  StderrOutput,
	}
}

// Validate validates the monitoring configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Output) == "" {
		return fmt.Errorf("monitoring output cannot be empty")
	}
	return nil
}
