package prompts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Source resolves the effective prompt text for a stage.
type Source interface {
	// Instructions returns the active override for stage in language, then the
	// language-neutral override, then the default.
	Instructions(ctx context.Context, stage Stage, language string) (string, error)
	// Spec returns the fixed output specification for stage.
	Spec(ctx context.Context, stage Stage) (string, error)
}

// Section is a titled block of context appended to a composed prompt.
// Value is rendered as indented JSON.
type Section struct {
	Title string
	Value any
}

// Defaults is a Source that serves the hardcoded text with no overrides.
type Defaults struct{}

func (Defaults) Instructions(_ context.Context, stage Stage, _ string) (string, error) {
	return Instructions(stage)
}

func (Defaults) Spec(_ context.Context, stage Stage) (string, error) {
	return Spec(stage)
}

// Compose builds the system prompt for stage: the instructions resolved for
// language, the output specification, then each section with a non-nil Value.
func Compose(ctx context.Context, src Source, stage Stage, language string, sections ...Section) (string, error) {
	instructions, err := src.Instructions(ctx, stage, NormalizeLanguage(language))
	if err != nil {
		return "", fmt.Errorf("load instructions for %s: %w", stage, err)
	}

	spec, err := src.Spec(ctx, stage)
	if err != nil {
		return "", fmt.Errorf("load spec for %s: %w", stage, err)
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(spec)

	for _, s := range sections {
		if s.Value == nil {
			continue
		}

		data, err := json.MarshalIndent(s.Value, "", "  ")
		if err != nil {
			return "", fmt.Errorf("serialize %s: %w", s.Title, err)
		}

		fmt.Fprintf(&sb, "\n\n%s:\n\n%s", s.Title, data)
	}

	return sb.String(), nil
}
