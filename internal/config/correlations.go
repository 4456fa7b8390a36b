package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvCorrelationsRulesFile    = "VITALIS_CORRELATIONS_RULES_FILE"
	EnvCorrelationsModelEnabled = "VITALIS_CORRELATIONS_MODEL_ENABLED"
)

// CorrelationsConfig selects the correlation detectors. An empty RulesFile
// uses the embedded rule set.
type CorrelationsConfig struct {
	RulesFile    string `toml:"rules_file"`
	ModelEnabled bool   `toml:"model_enabled"`
}

// Finalize applies environment variable overrides and validation.
func (c *CorrelationsConfig) Finalize() error {
	c.loadEnv()
	return c.validate()
}

// Merge overwrites fields from overlay. ModelEnabled always applies.
func (c *CorrelationsConfig) Merge(overlay *CorrelationsConfig) {
	c.ModelEnabled = overlay.ModelEnabled
	if overlay.RulesFile != "" {
		c.RulesFile = overlay.RulesFile
	}
}

func (c *CorrelationsConfig) loadEnv() {
	if v := os.Getenv(EnvCorrelationsRulesFile); v != "" {
		c.RulesFile = v
	}
	if v := os.Getenv(EnvCorrelationsModelEnabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ModelEnabled = b
		}
	}
}

func (c *CorrelationsConfig) validate() error {
	if c.RulesFile == "" {
		return nil
	}
	if _, err := os.Stat(c.RulesFile); err != nil {
		return fmt.Errorf("rules_file: %w", err)
	}
	return nil
}
