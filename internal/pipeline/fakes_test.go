package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/internal/analysis"
	"github.com/JaimeStill/vitalis/internal/documents"
	"github.com/JaimeStill/vitalis/internal/findings"
	"github.com/JaimeStill/vitalis/internal/users"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// memDocs applies every status change as a compare-and-set and records the
// sequence of statuses each document passed through.
type memDocs struct {
	mu          sync.Mutex
	docs        map[uuid.UUID]*documents.Document
	history     map[uuid.UUID][]documents.Status
	interrupted []error
}

func newMemDocs() *memDocs {
	return &memDocs{
		docs:    make(map[uuid.UUID]*documents.Document),
		history: make(map[uuid.UUID][]documents.Status),
	}
}

func (m *memDocs) get(id uuid.UUID) documents.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.docs[id]
}

func (m *memDocs) statuses(id uuid.UUID) []documents.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history[id])
}

func (m *memDocs) set(d *documents.Document, s documents.Status) *documents.Document {
	d.Status = s
	d.UpdatedAt = time.Now()
	m.history[d.ID] = append(m.history[d.ID], s)
	c := *d
	return &c
}

func (m *memDocs) Stash(_ context.Context, cmd documents.StashCommand) (*documents.File, error) {
	return &documents.File{
		Ref:       "users/" + cmd.UserID + "/documents/" + cmd.FileName,
		Name:      cmd.FileName,
		MimeType:  cmd.MimeType,
		SizeBytes: int64(len(cmd.Data)),
	}, nil
}

func (m *memDocs) Find(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	c := *d
	return &c, nil
}

func (m *memDocs) Create(_ context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := &documents.Document{
		ID:         uuid.New(),
		UserID:     cmd.UserID,
		FileRef:    cmd.FileRef,
		FileName:   cmd.FileName,
		MimeType:   cmd.MimeType,
		SizeBytes:  cmd.SizeBytes,
		UploadedAt: time.Now(),
	}
	m.docs[d.ID] = d
	return m.set(d, documents.StatusPending), nil
}

func (m *memDocs) Transition(_ context.Context, id uuid.UUID, from, to documents.Status) (*documents.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	if d.Status != from {
		return nil, documents.ErrInvalidTransition
	}
	return m.set(d, to), nil
}

func (m *memDocs) Classify(_ context.Context, id uuid.UUID, c documents.Classification) (*documents.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	if d.Status != documents.StatusClassifying {
		return nil, documents.ErrInvalidTransition
	}
	d.DocumentType = &c.DocumentType
	d.BodySystem = &c.BodySystem
	d.ClassificationConfidence = &c.Confidence
	return m.set(d, documents.StatusAnalyzing), nil
}

func (m *memDocs) Fail(_ context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return documents.ErrNotFound
	}
	if d.Status.Terminal() {
		return documents.ErrInvalidTransition
	}
	d.ErrorMessage = &message
	m.set(d, documents.StatusFailed)
	return nil
}

func (m *memDocs) Interrupt(ctx context.Context, id uuid.UUID, cause string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interrupted = append(m.interrupted, ctx.Err())
	if ctx.Err() != nil {
		return ctx.Err()
	}
	d, ok := m.docs[id]
	if !ok {
		return documents.ErrNotFound
	}
	msg := documents.CancelledPrefix + cause
	d.ErrorMessage = &msg
	return nil
}

func (m *memDocs) Reset(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	if !d.Retryable() {
		return nil, documents.ErrNotRetryable
	}
	d.ErrorMessage = nil
	return m.set(d, documents.StatusPending), nil
}

// memLedger is a findings ledger guarded by a single mutex.
type memLedger struct {
	mu   sync.Mutex
	rows []*findings.Finding
}

func (l *memLedger) Apply(_ context.Context, id findings.Identity, fn findings.ApplyFunc) (findings.Applied, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var current *findings.Finding
	for _, r := range l.rows {
		if r.Identity() == id && r.IsCurrent {
			current = r
		}
	}

	next := fn(current)
	if next == nil {
		return findings.Applied{Stored: current, Skipped: true}, nil
	}

	stored := *next
	stored.CreatedAt = time.Now()

	var prev *findings.Finding
	if current != nil {
		current.IsCurrent = false
		current.SupersededBy = &stored.ID
		c := *current
		prev = &c
	}
	l.rows = append(l.rows, &stored)

	s := stored
	return findings.Applied{Previous: prev, Stored: &s}, nil
}

func (l *memLedger) List(_ context.Context, userID string, currentOnly bool, _ findings.Filters) ([]findings.Finding, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []findings.Finding
	for _, r := range l.rows {
		if r.UserID == userID && (!currentOnly || r.IsCurrent) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (l *memLedger) History(_ context.Context, id findings.Identity) ([]findings.Finding, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []findings.Finding
	for _, r := range l.rows {
		if r.Identity() == id {
			out = append(out, *r)
		}
	}
	slices.Reverse(out)
	return out, nil
}

type classifierFunc func(ctx context.Context, in analysis.Input) (*analysis.Classification, error)

func (f classifierFunc) Classify(ctx context.Context, in analysis.Input) (*analysis.Classification, error) {
	return f(ctx, in)
}

type analyzerFunc func(ctx context.Context, req analysis.Request) (*analysis.Result, error)

func (f analyzerFunc) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	return f(ctx, req)
}

type correlatorFunc func(ctx context.Context, userID, language string) (int, error)

func (f correlatorFunc) Detect(ctx context.Context, userID, language string) (int, error) {
	return f(ctx, userID, language)
}

type profiles map[string]users.Context

func (p profiles) Context(_ context.Context, userID string) (users.Context, error) {
	if uc, ok := p[userID]; ok {
		return uc, nil
	}
	return users.Context{}, errors.New("profile service unavailable")
}
