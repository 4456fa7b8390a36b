package config

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	EnvLoggingLevel  = "VITALIS_LOG_LEVEL"
	EnvLoggingFormat = "VITALIS_LOG_FORMAT"
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// LoggingConfig selects the slog handler and minimum level.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// SlogLevel returns Level as a slog.Level.
func (c *LoggingConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func (c *LoggingConfig) Finalize() error {
	fallback(&c.Level, "info")
	fallback(&c.Format, LogFormatText)
	fromEnv(&c.Level, EnvLoggingLevel)
	fromEnv(&c.Format, EnvLoggingFormat)

	c.Format = strings.ToLower(c.Format)
	if c.Format != LogFormatText && c.Format != LogFormatJSON {
		return fmt.Errorf("unknown format %q", c.Format)
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return fmt.Errorf("invalid level %q", c.Level)
	}
	return nil
}

func (c *LoggingConfig) Merge(o *LoggingConfig) {
	overlay(&c.Level, o.Level)
	overlay(&c.Format, o.Format)
}
