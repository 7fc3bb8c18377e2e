package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix shared by every environment override.
const EnvPrefix = "PHOTOPORT"

// envOverrides lists the settings that can be supplied through the
// environment. Zero values leave the file or default value in place.
type envOverrides struct {
	LogLevel       string `envconfig:"LOG_LEVEL"`
	LogFormat      string `envconfig:"LOG_FORMAT"`
	StateDir       string `envconfig:"STATE_DIR"`
	LibraryDir     string `envconfig:"LIBRARY_DIR"`
	ImportMode     string `envconfig:"IMPORT_MODE"`
	Workers        int    `envconfig:"WORKERS"`
	MemoryBudgetMB int    `envconfig:"MEMORY_BUDGET_MB"`
	NtfyTopic      string `envconfig:"NTFY_TOPIC"`
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	if v := strings.TrimSpace(env.LogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(env.LogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := strings.TrimSpace(env.StateDir); v != "" {
		c.Paths.StateDir = v
	}
	if v := strings.TrimSpace(env.LibraryDir); v != "" {
		c.Paths.LibraryDir = v
	}
	if v := strings.TrimSpace(env.ImportMode); v != "" {
		c.Import.Mode = v
	}
	if env.Workers > 0 {
		c.Workers.Count = env.Workers
	}
	if env.MemoryBudgetMB > 0 {
		c.Memory.BudgetMB = env.MemoryBudgetMB
	}
	if v := strings.TrimSpace(env.NtfyTopic); v != "" {
		c.Notify.NtfyTopic = v
	}
	return nil
}
