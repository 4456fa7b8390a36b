package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvAIAPIKey          = "VITALIS_AI_API_KEY"
	EnvAIModel           = "VITALIS_AI_MODEL"
	EnvAITemperature     = "VITALIS_AI_TEMPERATURE"
	EnvAIMaxOutputTokens = "VITALIS_AI_MAX_OUTPUT_TOKENS"
)

// AIConfig holds the Gemini settings shared by the classifier, analyzers,
// correlation detector and recommender.
type AIConfig struct {
	APIKey          string  `toml:"api_key"`
	Model           string  `toml:"model"`
	Temperature     float32 `toml:"temperature"`
	MaxOutputTokens int32   `toml:"max_output_tokens"`
}

func (c *AIConfig) Finalize() error {
	fallback(&c.Model, "gemini-2.5-flash")
	fallback(&c.Temperature, 0.2)
	fallback(&c.MaxOutputTokens, 8192)

	fromEnv(&c.APIKey, EnvAIAPIKey)
	fromEnv(&c.Model, EnvAIModel)
	if f, err := strconv.ParseFloat(os.Getenv(EnvAITemperature), 32); err == nil {
		c.Temperature = float32(f)
	}
	if n, err := strconv.ParseInt(os.Getenv(EnvAIMaxOutputTokens), 10, 32); err == nil {
		c.MaxOutputTokens = int32(n)
	}

	switch {
	case c.APIKey == "":
		return fmt.Errorf("api_key required")
	case c.Temperature < 0 || c.Temperature > 2:
		return fmt.Errorf("temperature must be within [0,2]: %v", c.Temperature)
	case c.MaxOutputTokens < 1:
		return fmt.Errorf("max_output_tokens must be positive")
	}
	return nil
}

func (c *AIConfig) Merge(o *AIConfig) {
	overlay(&c.APIKey, o.APIKey)
	overlay(&c.Model, o.Model)
	overlay(&c.Temperature, o.Temperature)
	overlay(&c.MaxOutputTokens, o.MaxOutputTokens)
}
