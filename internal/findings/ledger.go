package findings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JaimeStill/vitalis/pkg/query"
	"github.com/JaimeStill/vitalis/pkg/repository"
)

// ApplyFunc derives the row to insert from the current row for an Identity
// (nil when the key has no history). Returning nil leaves the ledger untouched.
// It runs while the key is locked and must not perform I/O.
type ApplyFunc func(current *Finding) *Finding

// Applied reports what a Ledger.Apply call did.
type Applied struct {
	Previous *Finding
	Stored   *Finding
	Skipped  bool
}

// Ledger persists finding rows. Apply must serialize calls for the same
// Identity and make the retire-old/insert-new pair visible atomically.
type Ledger interface {
	Apply(ctx context.Context, id Identity, fn ApplyFunc) (Applied, error)
	List(ctx context.Context, userID string, currentOnly bool, filters Filters) ([]Finding, error)
	History(ctx context.Context, id Identity) ([]Finding, error)
}

const insertFinding = `
	INSERT INTO findings(
		id, user_id, document_id, body_system, finding_key, title, value, value_numeric, unit,
		status, severity, range_min, range_max, range_text, explanation, action_tip, priority,
		is_current, previous_finding_id, evolution_trend, evolution_note, measured_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, true, $18, $19, $20, $21)
	RETURNING `

type sqlLedger struct {
	db *sql.DB
}

// NewSQLLedger returns a PostgreSQL ledger. Serialization uses SELECT ... FOR UPDATE
// on the current row, backed by the partial unique index on current rows which
// turns a racing first insert into ErrStorageConflict.
func NewSQLLedger(db *sql.DB) Ledger {
	return &sqlLedger{db: db}
}

func (l *sqlLedger) Apply(ctx context.Context, id Identity, fn ApplyFunc) (Applied, error) {
	applied, err := repository.WithTx(ctx, l.db, func(tx *sql.Tx) (Applied, error) {
		lockQ, lockArgs := query.
			NewBuilder(projection).
			WhereEquals("UserID", id.UserID).
			WhereEquals("BodySystem", id.BodySystem).
			WhereEquals("Key", id.Key).
			WhereEquals("IsCurrent", true).
			BuildLocked()

		var current *Finding
		row, err := repository.QueryOne(ctx, tx, lockQ, lockArgs, scanFinding)
		switch {
		case err == nil:
			current = &row
		case errors.Is(err, sql.ErrNoRows):
		default:
			return Applied{}, fmt.Errorf("lock current finding: %w", err)
		}

		next := fn(current)
		if next == nil {
			return Applied{Stored: current, Skipped: true}, nil
		}

		if current != nil {
			if err := repository.ExecExpectOne(
				ctx, tx,
				"UPDATE findings SET is_current = false WHERE id = $1 AND is_current",
				current.ID,
			); err != nil {
				return Applied{}, fmt.Errorf("retire finding %s: %w", current.ID, err)
			}
		}

		stored, err := repository.QueryOne(ctx, tx, insertFinding+projection.Returning(), insertArgs(next), scanFinding)
		if err != nil {
			return Applied{}, fmt.Errorf("insert finding: %w", err)
		}

		if current != nil {
			if err := repository.ExecExpectOne(
				ctx, tx,
				"UPDATE findings SET superseded_by = $1 WHERE id = $2 AND superseded_by IS NULL",
				stored.ID, current.ID,
			); err != nil {
				return Applied{}, fmt.Errorf("link superseded finding %s: %w", current.ID, err)
			}
			current.IsCurrent = false
			current.SupersededBy = &stored.ID
		}

		return Applied{Previous: current, Stored: &stored}, nil
	})

	if err != nil {
		return Applied{}, repository.MapError(err, ErrNotFound, ErrStorageConflict)
	}
	return applied, nil
}

func (l *sqlLedger) List(ctx context.Context, userID string, currentOnly bool, filters Filters) ([]Finding, error) {
	qb := query.
		NewBuilder(projection, displaySort...).
		WhereEquals("UserID", userID)

	if currentOnly {
		qb.WhereEquals("IsCurrent", true)
	}
	filters.Apply(qb)

	q, args := qb.Build()
	rows, err := repository.QueryMany(ctx, l.db, q, args, scanFinding)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	return rows, nil
}

func (l *sqlLedger) History(ctx context.Context, id Identity) ([]Finding, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("UserID", id.UserID).
		WhereEquals("BodySystem", id.BodySystem).
		WhereEquals("Key", id.Key).
		OrderByFields(historySort).
		Build()

	rows, err := repository.QueryMany(ctx, l.db, q, args, scanFinding)
	if err != nil {
		return nil, fmt.Errorf("query finding history: %w", err)
	}
	return rows, nil
}

func insertArgs(f *Finding) []any {
	return []any{
		f.ID,
		f.UserID,
		f.DocumentID,
		f.BodySystem,
		f.Key,
		f.Title,
		f.Value,
		f.ValueNumeric,
		f.Unit,
		f.Status,
		f.Severity,
		f.ReferenceRange.Min,
		f.ReferenceRange.Max,
		f.ReferenceRange.Text,
		f.Explanation,
		f.ActionTip,
		f.Priority,
		f.PreviousFindingID,
		f.EvolutionTrend,
		f.EvolutionNote,
		f.MeasuredAt,
	}
}
