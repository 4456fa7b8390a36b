// Package pipeline drives an uploaded document through classification,
// analysis, findings extraction and the downstream stages. Every status
// change is persisted before the stage it announces begins, and a document
// only ever moves forward or to failed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/JaimeStill/vitalis/internal/documents"
)

// System defines the public contract for the processing pipeline.
type System interface {
	Handler() *Handler

	// ProcessUpload registers a stored file and runs it to a terminal status.
	// When up.DocumentID is set the existing document is re-entered instead.
	ProcessUpload(ctx context.Context, up Upload) (*Result, error)
	// Retry resets a failed or interrupted document of userID and runs it again.
	Retry(ctx context.Context, userID string, id uuid.UUID) (*Result, error)
}

type pipeline struct {
	rt     *Runtime
	tracer trace.Tracer
	logger *slog.Logger
}

// New creates the pipeline over rt. A nil rt.Tracer disables spans.
func New(rt *Runtime) System {
	tracer := rt.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("pipeline")
	}
	return &pipeline{
		rt:     rt,
		tracer: tracer,
		logger: rt.Logger.With("system", "pipeline"),
	}
}

func (p *pipeline) Handler() *Handler {
	return NewHandler(p, p.rt.Documents, p.rt.Logger, p.rt.MaxUploadSize)
}

func (p *pipeline) ProcessUpload(ctx context.Context, up Upload) (*Result, error) {
	if up.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if up.DocumentID != nil {
		return p.Retry(ctx, up.UserID, *up.DocumentID)
	}
	if strings.TrimSpace(up.FileRef) == "" {
		return nil, ErrInvalidUpload
	}

	doc, err := p.rt.Documents.Create(ctx, documents.CreateCommand{
		UserID:    up.UserID,
		FileRef:   up.FileRef,
		FileName:  up.FileName,
		MimeType:  up.MimeType,
		SizeBytes: up.SizeBytes,
		PageCount: up.PageCount,
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	return p.process(ctx, doc)
}

func (p *pipeline) Retry(ctx context.Context, userID string, id uuid.UUID) (*Result, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	doc, err := p.rt.Documents.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, documents.ErrNotFound
	}
	if !doc.Retryable() {
		return nil, ErrNotRetryable
	}

	doc, err = p.rt.Documents.Reset(ctx, id)
	if err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "document re-entered", "document_id", id, "user_id", userID)
	return p.process(ctx, doc)
}

// process runs doc from pending. Stage failures are reported in the Result
// with a nil error; cancellation returns ErrCancelled alongside the Result.
func (p *pipeline) process(ctx context.Context, doc *documents.Document) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(
			attribute.String("document_id", doc.ID.String()),
			attribute.String("mime_type", doc.MimeType),
		),
	)
	defer span.End()

	r := &run{p: p, doc: doc, result: &Result{DocumentID: doc.ID}}
	err := r.execute(ctx)
	r.result.Status = r.doc.Status

	switch {
	case err == nil:
		r.result.Success = true
		p.logger.InfoContext(ctx, "document completed",
			"document_id", doc.ID,
			"document_type", r.cls.DocumentType,
			"body_system", r.cls.BodySystem,
			"findings", r.stored,
		)
		return r.result, nil

	case ctx.Err() != nil:
		cause := context.Cause(ctx).Error()
		r.result.Error = documents.CancelledPrefix + cause
		span.SetStatus(codes.Error, r.result.Error)

		if ierr := p.rt.Documents.Interrupt(context.WithoutCancel(ctx), doc.ID, cause); ierr != nil {
			p.logger.ErrorContext(ctx, "failed to record interruption", "document_id", doc.ID, "error", ierr)
		}
		p.logger.WarnContext(ctx, "document interrupted",
			"document_id", doc.ID,
			"status", r.doc.Status,
			"cause", cause,
		)
		return r.result, fmt.Errorf("%w: %s", ErrCancelled, cause)

	case errors.As(err, new(*stageError)):
		r.result.Error = err.Error()
		r.result.Status = documents.StatusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, r.result.Error)

		if ferr := p.rt.Documents.Fail(context.WithoutCancel(ctx), doc.ID, r.result.Error); ferr != nil {
			p.logger.ErrorContext(ctx, "failed to record failure", "document_id", doc.ID, "error", ferr)
		}
		p.logger.WarnContext(ctx, "document failed", "document_id", doc.ID, "error", err)
		return r.result, nil

	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.result.Error = err.Error()
		return r.result, err
	}
}
