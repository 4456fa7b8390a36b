package correlations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/vitalis/internal/analysis"
	"github.com/JaimeStill/vitalis/internal/prompts"
	"github.com/JaimeStill/vitalis/pkg/formatting"
)

type modelDetector struct {
	gen     analysis.Generator
	prompts prompts.Source
	logger  *slog.Logger
}

// NewModelDetector returns a Detector that asks a model for cross-system links.
func NewModelDetector(gen analysis.Generator, src prompts.Source, logger *slog.Logger) Detector {
	return &modelDetector{
		gen:     gen,
		prompts: src,
		logger:  logger.With("system", "correlation-model"),
	}
}

type evidence struct {
	BodySystem string   `json:"body_system"`
	Key        string   `json:"finding_key"`
	Title      string   `json:"title"`
	Value      string   `json:"value"`
	Unit       string   `json:"unit,omitempty"`
	Status     string   `json:"status"`
	Trend      string   `json:"evolution_trend,omitempty"`
	Numeric    *float64 `json:"value_numeric,omitempty"`
}

type modelResponse struct {
	Correlations []Candidate `json:"correlations"`
}

func (d *modelDetector) Source() Source { return SourceModel }

func (d *modelDetector) Detect(ctx context.Context, in Input) ([]Candidate, error) {
	if len(in.Findings) == 0 {
		return []Candidate{}, nil
	}

	rows := make([]evidence, len(in.Findings))
	for i, f := range in.Findings {
		rows[i] = evidence{
			BodySystem: string(f.BodySystem),
			Key:        f.Key,
			Title:      f.Title,
			Value:      f.Value,
			Unit:       f.Unit,
			Status:     string(f.Status),
			Numeric:    f.ValueNumeric,
		}
		if f.EvolutionTrend != nil {
			rows[i].Trend = string(*f.EvolutionTrend)
		}
	}

	system, err := prompts.Compose(ctx, d.prompts, prompts.StageCorrelate, in.Language,
		prompts.Section{Title: "Current findings", Value: rows},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectionFailed, err)
	}

	content, err := d.gen.Generate(ctx, system,
		fmt.Sprintf("Identify correlations between body systems. Respond in language %q.", in.Language),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectionFailed, err)
	}

	resp, err := formatting.Parse[modelResponse](content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectionFailed, err)
	}

	known := make(map[string]bool, len(in.Findings))
	for _, f := range in.Findings {
		known[f.Key] = true
	}

	out := make([]Candidate, 0, len(resp.Correlations))
	for _, c := range resp.Correlations {
		keys := make([]string, 0, len(c.EvidenceKeys))
		for _, k := range c.EvidenceKeys {
			if known[k] {
				keys = append(keys, k)
			}
		}
		c.EvidenceKeys = keys
		c.Source = SourceModel
		out = append(out, c)
	}

	d.logger.DebugContext(ctx, "model correlations", "user_id", in.UserID, "count", len(out))
	return out, nil
}
