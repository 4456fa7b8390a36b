package config

import (
	"fmt"
	"time"
)

const (
	EnvPipelineClassifyTimeout       = "VITALIS_PIPELINE_CLASSIFY_TIMEOUT"
	EnvPipelineAnalyzeTimeout        = "VITALIS_PIPELINE_ANALYZE_TIMEOUT"
	EnvPipelineCorrelateTimeout      = "VITALIS_PIPELINE_CORRELATE_TIMEOUT"
	EnvPipelineSideEffectTimeout     = "VITALIS_PIPELINE_SIDE_EFFECT_TIMEOUT"
	EnvPipelineSideEffectConcurrency = "VITALIS_PIPELINE_SIDE_EFFECT_CONCURRENCY"
	EnvPipelineMaxConflictRetries    = "VITALIS_PIPELINE_MAX_CONFLICT_RETRIES"
)

// PipelineConfig bounds the processing stages.
type PipelineConfig struct {
	ClassifyTimeout       string `toml:"classify_timeout"`
	AnalyzeTimeout        string `toml:"analyze_timeout"`
	CorrelateTimeout      string `toml:"correlate_timeout"`
	SideEffectTimeout     string `toml:"side_effect_timeout"`
	SideEffectConcurrency int    `toml:"side_effect_concurrency"`
	MaxConflictRetries    int    `toml:"max_conflict_retries"`
}

func (c *PipelineConfig) ClassifyTimeoutDuration() time.Duration  { return duration(c.ClassifyTimeout) }
func (c *PipelineConfig) AnalyzeTimeoutDuration() time.Duration   { return duration(c.AnalyzeTimeout) }
func (c *PipelineConfig) CorrelateTimeoutDuration() time.Duration { return duration(c.CorrelateTimeout) }
func (c *PipelineConfig) SideEffectTimeoutDuration() time.Duration {
	return duration(c.SideEffectTimeout)
}

func (c *PipelineConfig) Finalize() error {
	fallback(&c.ClassifyTimeout, "1m")
	fallback(&c.AnalyzeTimeout, "3m")
	fallback(&c.CorrelateTimeout, "1m")
	fallback(&c.SideEffectTimeout, "45s")
	fallback(&c.SideEffectConcurrency, 4)
	fallback(&c.MaxConflictRetries, 3)

	fromEnv(&c.ClassifyTimeout, EnvPipelineClassifyTimeout)
	fromEnv(&c.AnalyzeTimeout, EnvPipelineAnalyzeTimeout)
	fromEnv(&c.CorrelateTimeout, EnvPipelineCorrelateTimeout)
	fromEnv(&c.SideEffectTimeout, EnvPipelineSideEffectTimeout)
	fromEnvInt(&c.SideEffectConcurrency, EnvPipelineSideEffectConcurrency)
	fromEnvInt(&c.MaxConflictRetries, EnvPipelineMaxConflictRetries)

	if err := checkDurations(map[string]string{
		"classify_timeout":    c.ClassifyTimeout,
		"analyze_timeout":     c.AnalyzeTimeout,
		"correlate_timeout":   c.CorrelateTimeout,
		"side_effect_timeout": c.SideEffectTimeout,
	}); err != nil {
		return err
	}
	if c.SideEffectConcurrency < 1 {
		return fmt.Errorf("side_effect_concurrency must be positive")
	}
	if c.MaxConflictRetries < 0 {
		return fmt.Errorf("max_conflict_retries must be non-negative")
	}
	return nil
}

func (c *PipelineConfig) Merge(o *PipelineConfig) {
	overlay(&c.ClassifyTimeout, o.ClassifyTimeout)
	overlay(&c.AnalyzeTimeout, o.AnalyzeTimeout)
	overlay(&c.CorrelateTimeout, o.CorrelateTimeout)
	overlay(&c.SideEffectTimeout, o.SideEffectTimeout)
	overlay(&c.SideEffectConcurrency, o.SideEffectConcurrency)
	overlay(&c.MaxConflictRetries, o.MaxConflictRetries)
}
