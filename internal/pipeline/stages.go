package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/vitalis/internal/analysis"
	"github.com/JaimeStill/vitalis/internal/documents"
	"github.com/JaimeStill/vitalis/internal/engagement"
	"github.com/JaimeStill/vitalis/internal/extraction"
	"github.com/JaimeStill/vitalis/internal/findings"
	"github.com/JaimeStill/vitalis/internal/users"
)

// stageError marks a load-bearing failure that moves the document to failed.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }

// run carries the state of one pass through the stages.
type run struct {
	p      *pipeline
	doc    *documents.Document
	user   users.Context
	cls    *analysis.Classification
	res    *analysis.Result
	drafts []findings.Draft
	store  *findings.StoreResult
	stored int
	result *Result
}

func (r *run) execute(ctx context.Context) error {
	if err := r.advance(ctx, documents.StatusPending, documents.StatusClassifying); err != nil {
		return err
	}
	if err := r.stage(ctx, "classify", r.p.rt.Timeouts.Classify, r.classify); err != nil {
		return err
	}
	if err := r.recordClassification(ctx); err != nil {
		return err
	}

	r.loadUser(ctx)

	if err := r.stage(ctx, "analyze", r.p.rt.Timeouts.Analyze, r.analyze); err != nil {
		return err
	}

	if err := r.advance(ctx, documents.StatusAnalyzing, documents.StatusExtracting); err != nil {
		return err
	}
	if err := r.stage(ctx, "extract", 0, r.extract); err != nil {
		return err
	}

	if err := r.advance(ctx, documents.StatusExtracting, documents.StatusDownstream); err != nil {
		return err
	}
	r.downstream(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return r.advance(ctx, documents.StatusDownstream, documents.StatusCompleted)
}

// advance persists a status change. A lost compare-and-set means another
// run owns the document and is returned as is.
func (r *run) advance(ctx context.Context, from, to documents.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := r.p.rt.Documents.Transition(ctx, r.doc.ID, from, to)
	if err != nil {
		if ctx.Err() != nil ||
			errors.Is(err, documents.ErrInvalidTransition) ||
			errors.Is(err, documents.ErrNotFound) {
			return fmt.Errorf("transition %s to %s: %w", from, to, err)
		}
		return &stageError{stage: "persist " + string(to), err: err}
	}

	r.doc = doc
	r.p.logger.DebugContext(ctx, "status changed",
		"document_id", r.doc.ID,
		"from", from,
		"to", to,
	)
	return nil
}

// stage runs fn in its own span, bounded by timeout when positive.
func (r *run) stage(ctx context.Context, name string, timeout time.Duration, fn func(context.Context) error) error {
	ctx, span := r.p.tracer.Start(ctx, "pipeline."+name,
		trace.WithAttributes(
			attribute.String("stage", name),
			attribute.String("document_id", r.doc.ID.String()),
		),
	)
	defer span.End()

	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	if err == nil {
		r.p.logger.InfoContext(ctx, "stage completed",
			"stage", name,
			"document_id", r.doc.ID,
			"duration", time.Since(start),
		)
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %s: %w", timeout, err)
	}
	return &stageError{stage: name, err: err}
}

func (r *run) input() analysis.Input {
	return analysis.Input{
		FileRef:  r.doc.FileRef,
		FileName: r.doc.FileName,
		MimeType: r.doc.MimeType,
	}
}

func (r *run) classify(ctx context.Context) error {
	cls, err := r.p.rt.Classifier.Classify(ctx, r.input())
	if err != nil {
		if !errors.Is(err, analysis.ErrClassificationFailed) {
			err = fmt.Errorf("%w: %w", analysis.ErrClassificationFailed, err)
		}
		return err
	}
	if cls == nil {
		return fmt.Errorf("%w: empty classification", analysis.ErrClassificationFailed)
	}

	r.cls = cls
	r.result.DocumentType = &cls.DocumentType
	r.result.BodySystem = &cls.BodySystem
	return nil
}

// recordClassification writes the classification and moves to analyzing in
// one compare-and-set.
func (r *run) recordClassification(ctx context.Context) error {
	doc, err := r.p.rt.Documents.Classify(ctx, r.doc.ID, documents.Classification{
		DocumentType: r.cls.DocumentType,
		BodySystem:   r.cls.BodySystem,
		Confidence:   r.cls.Confidence,
		Reasoning:    r.cls.Reasoning,
	})
	if err != nil {
		if ctx.Err() != nil ||
			errors.Is(err, documents.ErrInvalidTransition) ||
			errors.Is(err, documents.ErrNotFound) {
			return fmt.Errorf("record classification: %w", err)
		}
		return &stageError{stage: "persist classification", err: err}
	}
	r.doc = doc
	return nil
}

// loadUser reads the profile fresh for this run. A failed read falls back
// to defaults so personalization never blocks a document.
func (r *run) loadUser(ctx context.Context) {
	uc, err := r.p.rt.Users.Context(ctx, r.doc.UserID)
	if err != nil {
		r.p.logger.WarnContext(ctx, "user profile unavailable, using defaults",
			"user_id", r.doc.UserID,
			"error", err,
		)
		uc = users.Context{UserID: r.doc.UserID, Language: users.DefaultLanguage, Allergies: []string{}}
	}
	r.user = uc
}

func (r *run) analyze(ctx context.Context) error {
	res, err := r.p.rt.Analyzer.Analyze(ctx, analysis.Request{
		Input:        r.input(),
		DocumentType: r.cls.DocumentType,
		BodySystem:   r.cls.BodySystem,
		User:         r.user,
	})
	if err != nil {
		if !errors.Is(err, analysis.ErrAnalysisFailed) {
			err = fmt.Errorf("%w: %w", analysis.ErrAnalysisFailed, err)
		}
		return err
	}
	r.res = res
	return nil
}

func (r *run) extract(ctx context.Context) error {
	r.drafts = extraction.Extract(r.cls.DocumentType, r.cls.BodySystem, r.res, r.user.Language)

	zero, no := 0, false
	r.result.FindingsExtracted = &zero
	r.result.EvolutionDetected = &no

	if len(r.drafts) == 0 {
		r.p.logger.InfoContext(ctx, "no findings extracted",
			"document_id", r.doc.ID,
			"document_type", r.cls.DocumentType,
			"reason", extraction.ErrExtractionEmpty,
		)
		return nil
	}

	store, err := r.p.rt.Findings.Store(ctx, findings.StoreCommand{
		UserID:     r.doc.UserID,
		DocumentID: r.doc.ID,
		BodySystem: r.cls.BodySystem,
		Findings:   r.drafts,
		MeasuredAt: extraction.MeasuredAt(r.res),
	})
	if err != nil {
		return err
	}

	r.store = store
	r.stored = store.StoredCount
	r.result.FindingsExtracted = &store.StoredCount
	r.result.EvolutionDetected = &store.EvolutionDetected
	return nil
}

// downstream runs correlation detection and the engagement effects. Neither
// can fail the document.
func (r *run) downstream(ctx context.Context) {
	count := 0
	err := r.stage(ctx, "correlate", r.p.rt.Timeouts.Correlate, func(ctx context.Context) error {
		n, err := r.p.rt.Correlator.Detect(ctx, r.doc.UserID, r.user.Language)
		count = n
		return err
	})
	if err != nil {
		r.p.logger.WarnContext(ctx, "correlation detection failed",
			"document_id", r.doc.ID,
			"user_id", r.doc.UserID,
			"error", err,
		)
	} else {
		r.result.Correlations = &count
	}

	if r.p.rt.Engagement == nil {
		return
	}

	_ = r.stage(ctx, "engage", 0, func(ctx context.Context) error {
		report := r.p.rt.Engagement.Dispatch(ctx, engagement.Event{
			UserID:       r.doc.UserID,
			DocumentID:   r.doc.ID,
			DocumentType: r.cls.DocumentType,
			BodySystem:   r.cls.BodySystem,
			User:         r.user,
			Analysis:     r.res,
			Findings:     r.drafts,
			Store:        r.store,
			Correlations: count,
		})
		r.result.SideEffects = report.Outcomes
		return nil
	})
}
