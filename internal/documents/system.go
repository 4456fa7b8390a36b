package documents

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/pkg/pagination"
)

// System defines the public contract for document domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	// Open returns the stored file for a document. The caller closes the reader.
	Open(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Document, error)

	// Stash writes upload bytes to blob storage and returns the stored file.
	Stash(ctx context.Context, cmd StashCommand) (*File, error)
	// Create registers a document in pending status.
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)

	// Transition moves a document from one status to the next. It fails with
	// ErrInvalidTransition when the stored status is not from.
	Transition(ctx context.Context, id uuid.UUID, from, to Status) (*Document, error)
	// Classify records the classification and moves classifying to analyzing.
	Classify(ctx context.Context, id uuid.UUID, c Classification) (*Document, error)
	// Fail moves a non-terminal document to failed with message.
	Fail(ctx context.Context, id uuid.UUID, message string) error
	// Interrupt records a cancellation without changing status.
	Interrupt(ctx context.Context, id uuid.UUID, cause string) error
	// Reset returns a failed or interrupted document to pending.
	Reset(ctx context.Context, id uuid.UUID) (*Document, error)
}
