package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/vitalis/internal/analysis"
	"github.com/JaimeStill/vitalis/internal/documents"
	"github.com/JaimeStill/vitalis/internal/engagement"
	"github.com/JaimeStill/vitalis/internal/findings"
	"github.com/JaimeStill/vitalis/internal/users"
)

// Documents is the subset of the documents system the pipeline writes through.
type Documents interface {
	Stash(ctx context.Context, cmd documents.StashCommand) (*documents.File, error)
	Find(ctx context.Context, id uuid.UUID) (*documents.Document, error)
	Create(ctx context.Context, cmd documents.CreateCommand) (*documents.Document, error)
	Transition(ctx context.Context, id uuid.UUID, from, to documents.Status) (*documents.Document, error)
	Classify(ctx context.Context, id uuid.UUID, c documents.Classification) (*documents.Document, error)
	Fail(ctx context.Context, id uuid.UUID, message string) error
	Interrupt(ctx context.Context, id uuid.UUID, cause string) error
	Reset(ctx context.Context, id uuid.UUID) (*documents.Document, error)
}

// FindingsStore persists extracted findings with supersession.
type FindingsStore interface {
	Store(ctx context.Context, cmd findings.StoreCommand) (*findings.StoreResult, error)
}

// Correlator recomputes a user's correlations.
type Correlator interface {
	Detect(ctx context.Context, userID, language string) (int, error)
}

// Dispatcher runs the engagement side-effects.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev engagement.Event) engagement.Report
}

// Timeouts bound each external call. A zero value disables the bound.
type Timeouts struct {
	Classify  time.Duration
	Analyze   time.Duration
	Correlate time.Duration
}

// Runtime bundles the collaborators the pipeline stages require.
// It is constructed by the API composition code from infrastructure and domain systems.
type Runtime struct {
	Documents  Documents
	Users      users.Source
	Classifier analysis.Classifier
	Analyzer   analysis.Analyzer
	Findings   FindingsStore
	Correlator Correlator
	Engagement Dispatcher
	Timeouts   Timeouts
	Tracer     trace.Tracer
	Logger     *slog.Logger

	// MaxUploadSize bounds multipart uploads accepted by the handler.
	MaxUploadSize int64
}
