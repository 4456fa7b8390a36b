package api

import (
	"fmt"

	"github.com/JaimeStill/vitalis/internal/analysis"
	"github.com/JaimeStill/vitalis/internal/correlations"
	"github.com/JaimeStill/vitalis/internal/documents"
	"github.com/JaimeStill/vitalis/internal/engagement"
	"github.com/JaimeStill/vitalis/internal/findings"
	"github.com/JaimeStill/vitalis/internal/pipeline"
	"github.com/JaimeStill/vitalis/internal/profile"
	"github.com/JaimeStill/vitalis/internal/prompts"
	"github.com/JaimeStill/vitalis/internal/users"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents    documents.System
	Prompts      prompts.System
	Findings     findings.System
	Correlations correlations.System
	Profile      profile.System
	Pipeline     pipeline.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) (*Domain, error) {
	cfg := runtime.Config
	db := runtime.Database.Connection()
	maxUpload := cfg.API.MaxUploadSizeBytes()

	docsSystem := documents.New(
		db,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
		maxUpload,
	)

	promptsSystem := prompts.New(
		db,
		runtime.Logger,
		runtime.Pagination,
	)

	findingsSystem := findings.New(
		findings.NewSQLLedger(db),
		runtime.Logger,
		cfg.Pipeline.MaxConflictRetries,
	)

	detector, err := newDetector(runtime, promptsSystem)
	if err != nil {
		return nil, err
	}

	correlationsSystem := correlations.New(
		correlations.NewRepository(db),
		findingsSystem,
		detector,
		runtime.Logger,
	)

	router, err := analysis.NewRouter(analysis.NewModelAnalyzers(
		runtime.Model,
		promptsSystem,
		runtime.Storage,
		runtime.Logger,
	))
	if err != nil {
		return nil, fmt.Errorf("analyzers: %w", err)
	}

	pipelineSystem := pipeline.New(&pipeline.Runtime{
		Documents: docsSystem,
		Users:     users.NewSource(db, runtime.Logger),
		Classifier: analysis.NewModelClassifier(
			runtime.Model,
			promptsSystem,
			runtime.Storage,
			runtime.Logger,
		),
		Analyzer:   router,
		Findings:   findingsSystem,
		Correlator: correlationsSystem,
		Engagement: newDispatcher(runtime, promptsSystem),
		Timeouts: pipeline.Timeouts{
			Classify:  cfg.Pipeline.ClassifyTimeoutDuration(),
			Analyze:   cfg.Pipeline.AnalyzeTimeoutDuration(),
			Correlate: cfg.Pipeline.CorrelateTimeoutDuration(),
		},
		Tracer:        runtime.Telemetry.Tracer("vitalis/pipeline"),
		Logger:        runtime.Logger,
		MaxUploadSize: maxUpload,
	})

	return &Domain{
		Documents:    docsSystem,
		Prompts:      promptsSystem,
		Findings:     findingsSystem,
		Correlations: correlationsSystem,
		Profile:      profile.New(findingsSystem, correlationsSystem, runtime.Logger),
		Pipeline:     pipelineSystem,
	}, nil
}

func newDetector(runtime *Runtime, src prompts.Source) (*correlations.Composite, error) {
	rules, err := correlations.LoadRules(runtime.Config.Correlations.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("correlation rules: %w", err)
	}

	detectors := []correlations.Detector{correlations.NewRuleDetector(rules)}
	if runtime.Config.Correlations.ModelEnabled {
		detectors = append(detectors, correlations.NewModelDetector(runtime.Model, src, runtime.Logger))
	}

	return correlations.NewComposite(runtime.Logger, detectors...), nil
}

func newDispatcher(runtime *Runtime, src prompts.Source) *engagement.Dispatcher {
	cfg := runtime.Config
	store := engagement.NewStore(runtime.Database.Connection())
	progress := engagement.NewRedisProgress(runtime.Cache.Client(), cfg.Redis.KeyPrefix)

	return engagement.NewDispatcher(
		engagement.Options{
			Concurrency: cfg.Pipeline.SideEffectConcurrency,
			Timeout:     cfg.Pipeline.SideEffectTimeoutDuration(),
		},
		runtime.Telemetry.Tracer("vitalis/engagement"),
		runtime.Logger,
		engagement.NewRecommendations(runtime.Model, src, store),
		engagement.NewMealPlanRefresh(store),
		engagement.NewInterventions(store),
		engagement.NewGamification(progress),
	)
}
