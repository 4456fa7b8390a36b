package findings

import (
	"context"

	"github.com/JaimeStill/vitalis/internal/taxonomy"
)

// System defines the public contract for the findings record.
type System interface {
	Handler() *Handler

	// Store applies supersession for each draft of a document.
	Store(ctx context.Context, cmd StoreCommand) (*StoreResult, error)

	// Current returns the user's current findings across body systems.
	Current(ctx context.Context, userID string, filters Filters) ([]Finding, error)
	// All returns every stored row for the user, current and superseded.
	All(ctx context.Context, userID string) ([]Finding, error)
	// History returns all rows for one key, newest first.
	History(ctx context.Context, userID string, system taxonomy.BodySystem, key string) ([]Finding, error)
}
