package documents

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/vitalis/pkg/pagination"
	"github.com/JaimeStill/vitalis/pkg/query"
	"github.com/JaimeStill/vitalis/pkg/repository"
	"github.com/JaimeStill/vitalis/pkg/storage"
)

const nonTerminal = "status NOT IN ('completed', 'failed')"

type repo struct {
	db            *sql.DB
	storage       storage.System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// New creates a document repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
) System {
	return &repo{
		db:            db,
		storage:       store,
		logger:        logger.With("system", "documents"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort).WhereSearch(page.Search, "FileName", "MimeType")
	filters.Apply(qb)

	result, err := repository.QueryPage(ctx, r.db, qb, page, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Open(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Document, error) {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := r.storage.Download(ctx, doc.FileRef)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("download document %s: %w", id, err)
	}
	return rc, doc, nil
}

func (r *repo) Stash(ctx context.Context, cmd StashCommand) (*File, error) {
	if cmd.UserID == "" || len(cmd.Data) == 0 {
		return nil, ErrInvalidFile
	}
	if r.maxUploadSize > 0 && int64(len(cmd.Data)) > r.maxUploadSize {
		return nil, ErrFileTooLarge
	}

	key := storageKey(cmd.UserID, uuid.New(), cleanFilename(cmd.FileName))

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.MimeType); err != nil {
		return nil, fmt.Errorf("upload document blob: %w", err)
	}

	return &File{
		Ref:       key,
		Name:      cmd.FileName,
		MimeType:  cmd.MimeType,
		SizeBytes: int64(len(cmd.Data)),
		PageCount: pageCount(r.logger, cmd.Data, cmd.MimeType),
	}, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	if cmd.UserID == "" || cmd.FileRef == "" {
		return nil, ErrInvalidRequest
	}

	q := `
		INSERT INTO documents(id, user_id, file_ref, file_name, mime_type, size_bytes, page_count, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + projection.Returning()

	args := []any{
		uuid.New(),
		cmd.UserID,
		cmd.FileRef,
		cmd.FileName,
		cmd.MimeType,
		cmd.SizeBytes,
		cmd.PageCount,
		StatusPending,
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, args, scanDocument)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document created", "id", d.ID, "user_id", d.UserID, "file_name", d.FileName)
	return &d, nil
}

func (r *repo) Transition(ctx context.Context, id uuid.UUID, from, to Status) (*Document, error) {
	q := `
		UPDATE documents SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + projection.Returning()

	d, err := repository.QueryOne(ctx, r.db, q, []any{id, from, to}, scanDocument)
	if err != nil {
		return nil, r.mapTransitionError(ctx, id, err, ErrInvalidTransition)
	}
	return &d, nil
}

func (r *repo) Classify(ctx context.Context, id uuid.UUID, c Classification) (*Document, error) {
	q := `
		UPDATE documents
		SET document_type = $2, body_system = $3, classification_confidence = $4,
			classification_reasoning = $5, status = $6, updated_at = now()
		WHERE id = $1 AND status = $7
		RETURNING ` + projection.Returning()

	args := []any{
		id,
		c.DocumentType,
		c.BodySystem,
		c.Confidence,
		c.Reasoning,
		StatusAnalyzing,
		StatusClassifying,
	}

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, r.mapTransitionError(ctx, id, err, ErrInvalidTransition)
	}
	return &d, nil
}

func (r *repo) Fail(ctx context.Context, id uuid.UUID, message string) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE documents SET status = $2, error_message = $3, updated_at = now() WHERE id = $1 AND "+nonTerminal,
		id, StatusFailed, message,
	)
	if err != nil {
		return r.mapTransitionError(ctx, id, err, ErrInvalidTransition)
	}
	return nil
}

func (r *repo) Interrupt(ctx context.Context, id uuid.UUID, cause string) error {
	err := repository.ExecExpectOne(
		ctx, r.db,
		"UPDATE documents SET error_message = $2, updated_at = now() WHERE id = $1 AND "+nonTerminal,
		id, CancelledPrefix+cause,
	)
	if err != nil {
		return r.mapTransitionError(ctx, id, err, ErrInvalidTransition)
	}
	return nil
}

func (r *repo) Reset(ctx context.Context, id uuid.UUID) (*Document, error) {
	q := `
		UPDATE documents SET status = $2, error_message = NULL, updated_at = now()
		WHERE id = $1 AND (status = $3 OR (` + nonTerminal + ` AND error_message LIKE $4))
		RETURNING ` + projection.Returning()

	args := []any{id, StatusPending, StatusFailed, CancelledPrefix + "%"}

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, r.mapTransitionError(ctx, id, err, ErrNotRetryable)
	}

	r.logger.Info("document reset for retry", "id", id)
	return &d, nil
}

// mapTransitionError distinguishes a missing document from a status
// mismatch when a guarded update touched no rows.
func (r *repo) mapTransitionError(ctx context.Context, id uuid.UUID, err error, mismatch error) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if _, findErr := r.Find(ctx, id); findErr != nil {
		return findErr
	}
	return mismatch
}

// storageKey places each upload under its owner with a fresh id, so
// repeated file names never collide.
func storageKey(userID string, id uuid.UUID, filename string) string {
	return path.Join("users", url.PathEscape(userID), "documents", id.String(), filename)
}

// cleanFilename keeps the final path element of name, escaped for use in a
// blob key.
func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return "document"
	}
	return url.PathEscape(name)
}

// pageCount reads the page count of a PDF upload. Other types and
// unreadable PDFs report nil.
func pageCount(logger *slog.Logger, data []byte, mimeType string) *int {
	if mimeType != "application/pdf" {
		return nil
	}
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("pdf page count unavailable", "error", err)
		return nil
	}
	return &n
}
