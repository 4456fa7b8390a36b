package correlations

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for the correlation engine.
type System interface {
	Handler() *Handler

	// Detect recomputes the user's correlations from current findings and
	// returns how many were stored as active.
	Detect(ctx context.Context, userID, language string) (int, error)
	List(ctx context.Context, userID string, includeDismissed bool) ([]Correlation, error)
	Dismiss(ctx context.Context, userID string, id uuid.UUID) (*Correlation, error)
}

// SyncFunc derives a Plan from the user's stored rows. It runs while the
// user's correlations are locked and must not perform I/O.
type SyncFunc func(existing []Correlation) Plan

// Repository persists correlation rows.
type Repository interface {
	// Sync serializes detections per user and applies the returned plan atomically.
	Sync(ctx context.Context, userID string, fn SyncFunc) (Plan, error)
	List(ctx context.Context, userID string, includeDismissed bool) ([]Correlation, error)
	Dismiss(ctx context.Context, userID string, id uuid.UUID) (*Correlation, error)
}
