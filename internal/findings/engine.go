package findings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/internal/taxonomy"
)

type engine struct {
	ledger       Ledger
	logger       *slog.Logger
	maxConflicts int
	now          func() time.Time
}

// New creates the findings system over the given ledger. maxConflicts bounds
// how many times a single finding is re-read and retried after ErrStorageConflict.
func New(ledger Ledger, logger *slog.Logger, maxConflicts int) System {
	if maxConflicts < 0 {
		maxConflicts = 0
	}
	return &engine{
		ledger:       ledger,
		logger:       logger.With("system", "findings"),
		maxConflicts: maxConflicts,
		now:          time.Now,
	}
}

func (e *engine) Handler() *Handler {
	return NewHandler(e, e.logger)
}

// Store persists each draft independently. A failing draft is logged and
// skipped; the call fails only when every draft of a non-empty batch failed.
// A key repeated within the batch counts as failed, since the same-document
// guard in supersede would otherwise drop it silently.
func (e *engine) Store(ctx context.Context, cmd StoreCommand) (*StoreResult, error) {
	measuredAt := e.now().UTC()
	if cmd.MeasuredAt != nil {
		measuredAt = cmd.MeasuredAt.UTC()
	}

	result := &StoreResult{EvolutionFindings: []Evolution{}}
	batch := make(map[string]bool, len(cmd.Findings))

	for _, draft := range cmd.Findings {
		var (
			applied Applied
			err     error
		)
		if batch[draft.Key] {
			err = fmt.Errorf("%w: %s", ErrDuplicateKey, draft.Key)
		} else {
			batch[draft.Key] = true
			applied, err = e.storeOne(ctx, cmd, draft, measuredAt)
		}
		if err != nil {
			result.FailedCount++
			e.logger.WarnContext(ctx, "finding not stored",
				"user_id", cmd.UserID,
				"document_id", cmd.DocumentID,
				"body_system", cmd.BodySystem,
				"finding_key", draft.Key,
				"error", err,
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		result.StoredCount++

		if applied.Previous != nil && applied.Stored.EvolutionTrend != nil {
			result.EvolutionDetected = true
			result.EvolutionFindings = append(result.EvolutionFindings, Evolution{
				FindingKey:    applied.Stored.Key,
				PreviousValue: display(ObservationOf(applied.Previous)),
				CurrentValue:  display(ObservationOf(applied.Stored)),
				Trend:         *applied.Stored.EvolutionTrend,
				Note:          applied.Stored.EvolutionNote,
			})
		}
	}

	if len(cmd.Findings) > 0 && result.StoredCount == 0 {
		return result, fmt.Errorf("%w: %d of %d failed", ErrStoreFailed, result.FailedCount, len(cmd.Findings))
	}

	e.logger.InfoContext(ctx, "findings stored",
		"user_id", cmd.UserID,
		"document_id", cmd.DocumentID,
		"body_system", cmd.BodySystem,
		"stored", result.StoredCount,
		"failed", result.FailedCount,
		"evolved", len(result.EvolutionFindings),
	)

	return result, nil
}

func (e *engine) storeOne(ctx context.Context, cmd StoreCommand, draft Draft, measuredAt time.Time) (Applied, error) {
	id := Identity{UserID: cmd.UserID, BodySystem: cmd.BodySystem, Key: draft.Key}

	for attempt := 0; ; attempt++ {
		applied, err := e.ledger.Apply(ctx, id, func(current *Finding) *Finding {
			return supersede(current, cmd, draft, measuredAt)
		})
		if errors.Is(err, ErrStorageConflict) && attempt < e.maxConflicts {
			e.logger.DebugContext(ctx, "finding key conflict, retrying",
				"finding_key", draft.Key,
				"attempt", attempt+1,
			)
			continue
		}
		return applied, err
	}
}

// supersede builds the row that replaces current. A current row written by the
// same document means a re-entered run already stored it, so nothing is written.
func supersede(current *Finding, cmd StoreCommand, d Draft, measuredAt time.Time) *Finding {
	if current != nil && current.DocumentID == cmd.DocumentID {
		return nil
	}

	next := &Finding{
		ID:             uuid.New(),
		UserID:         cmd.UserID,
		DocumentID:     cmd.DocumentID,
		BodySystem:     cmd.BodySystem,
		Key:            d.Key,
		Title:          d.Title,
		Value:          d.Value,
		ValueNumeric:   d.ValueNumeric,
		Unit:           d.Unit,
		Status:         d.Status,
		Severity:       d.Severity,
		ReferenceRange: d.ReferenceRange,
		Explanation:    d.Explanation,
		ActionTip:      d.ActionTip,
		Priority:       d.Priority,
		IsCurrent:      true,
		MeasuredAt:     measuredAt,
	}

	if current == nil {
		return next
	}

	prev, obs := ObservationOf(current), ObservationOfDraft(d)
	trend := ComputeTrend(prev, obs)

	next.PreviousFindingID = &current.ID
	next.EvolutionTrend = &trend
	next.EvolutionNote = EvolutionNote(d.Title, prev, obs, trend)

	return next
}

func (e *engine) Current(ctx context.Context, userID string, filters Filters) ([]Finding, error) {
	return e.ledger.List(ctx, userID, true, filters)
}

func (e *engine) All(ctx context.Context, userID string) ([]Finding, error) {
	return e.ledger.List(ctx, userID, false, Filters{})
}

func (e *engine) History(ctx context.Context, userID string, system taxonomy.BodySystem, key string) ([]Finding, error) {
	if key == "" {
		return nil, ErrInvalidQuery
	}
	return e.ledger.History(ctx, Identity{UserID: userID, BodySystem: system, Key: key})
}
