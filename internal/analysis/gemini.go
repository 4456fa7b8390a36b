package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/vitalis/internal/prompts"
	"github.com/JaimeStill/vitalis/pkg/formatting"
	"github.com/JaimeStill/vitalis/pkg/storage"
)

var variantStages = map[Variant]prompts.Stage{
	VariantFood:       prompts.StageAnalyzeFood,
	VariantSupplement: prompts.StageAnalyzeSupplement,
	VariantDrink:      prompts.StageAnalyzeDrink,
	VariantLab:        prompts.StageAnalyzeLab,
	VariantMedication: prompts.StageAnalyzeMedication,
	VariantSkincare:   prompts.StageAnalyzeSkincare,
	VariantGeneral:    prompts.StageAnalyzeGeneral,
}

// StageFor returns the prompt stage used by the analyzer for v.
func StageFor(v Variant) prompts.Stage {
	if s, ok := variantStages[v]; ok {
		return s
	}
	return prompts.StageAnalyzeGeneral
}

type modelClassifier struct {
	gen     Generator
	prompts prompts.Source
	store   storage.System
	logger  *slog.Logger
}

// NewModelClassifier returns a Classifier that sends the stored file to gen.
func NewModelClassifier(gen Generator, src prompts.Source, store storage.System, logger *slog.Logger) Classifier {
	return &modelClassifier{
		gen:     gen,
		prompts: src,
		store:   store,
		logger:  logger.With("system", "classifier"),
	}
}

func (c *modelClassifier) Classify(ctx context.Context, in Input) (*Classification, error) {
	system, err := prompts.Compose(ctx, c.prompts, prompts.StageClassify, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}

	data, err := storage.ReadAll(ctx, c.store, in.FileRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}

	content, err := c.gen.Generate(ctx, system,
		fmt.Sprintf("Classify the attached file %q (%s).", in.FileName, in.MimeType),
		Attachment{MimeType: in.MimeType, Data: data},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}

	raw, err := formatting.Parse[RawClassification](content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}

	cls := raw.Normalize()
	c.logger.DebugContext(ctx, "file classified",
		"file_ref", in.FileRef,
		"document_type", cls.DocumentType,
		"body_system", cls.BodySystem,
		"confidence", cls.Confidence,
	)

	return &cls, nil
}

type modelAnalyzer struct {
	variant Variant
	gen     Generator
	prompts prompts.Source
	store   storage.System
	logger  *slog.Logger
}

// NewModelAnalyzer returns an Analyzer for one variant backed by gen.
func NewModelAnalyzer(v Variant, gen Generator, src prompts.Source, store storage.System, logger *slog.Logger) Analyzer {
	return &modelAnalyzer{
		variant: v,
		gen:     gen,
		prompts: src,
		store:   store,
		logger:  logger.With("system", "analyzer", "variant", v),
	}
}

// NewModelAnalyzers returns one model-backed analyzer per variant, ready for NewRouter.
func NewModelAnalyzers(gen Generator, src prompts.Source, store storage.System, logger *slog.Logger) map[Variant]Analyzer {
	out := make(map[Variant]Analyzer, len(variantStages))
	for _, v := range Variants() {
		out[v] = NewModelAnalyzer(v, gen, src, store, logger)
	}
	return out
}

func (a *modelAnalyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	system, err := prompts.Compose(ctx, a.prompts, StageFor(a.variant), req.User.Lang(),
		prompts.Section{Title: "User profile", Value: req.User},
		prompts.Section{Title: "Classification", Value: map[string]string{
			"document_type": string(req.DocumentType),
			"body_system":   string(req.BodySystem),
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	data, err := storage.ReadAll(ctx, a.store, req.FileRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	content, err := a.gen.Generate(ctx, system,
		fmt.Sprintf("Analyze the attached file %q.", req.FileName),
		Attachment{MimeType: req.MimeType, Data: data},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	raw, err := formatting.Extract(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	res, err := DecodeResult(a.variant, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	a.logger.DebugContext(ctx, "file analyzed", "file_ref", req.FileRef, "summary_len", len(res.Summary))
	return res, nil
}
