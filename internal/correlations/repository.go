package correlations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/pkg/query"
	"github.com/JaimeStill/vitalis/pkg/repository"
)

const insertCorrelation = `
	INSERT INTO correlations(
		id, user_id, correlation_key, title, primary_system, related_systems, explanation,
		action_tip, confidence, priority, evidence_keys, source, basis_fingerprint,
		is_active, is_dismissed, detected_at
	)
	VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10, $11::jsonb, $12, $13, true, false, $14)`

const refreshCorrelation = `
	UPDATE correlations
	SET title = $2, related_systems = $3::jsonb, explanation = $4, action_tip = $5,
		confidence = $6, priority = $7, evidence_keys = $8::jsonb, source = $9,
		basis_fingerprint = $10, detected_at = $11
	WHERE id = $1 AND is_active AND NOT is_dismissed`

type sqlRepository struct {
	db *sql.DB
}

// NewRepository returns a PostgreSQL correlation repository. Sync takes a
// transaction-scoped advisory lock on the user so concurrent detections for
// the same user apply one after the other.
func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) Sync(ctx context.Context, userID string, fn SyncFunc) (Plan, error) {
	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Plan, error) {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "correlations:"+userID); err != nil {
			return Plan{}, fmt.Errorf("lock user correlations: %w", err)
		}

		q, args := query.
			NewBuilder(projection).
			WhereEquals("UserID", userID).
			WhereClause("(c.is_active OR c.is_dismissed)").
			Build()

		existing, err := repository.QueryMany(ctx, tx, q, args, scanCorrelation)
		if err != nil {
			return Plan{}, fmt.Errorf("load correlations: %w", err)
		}

		plan := fn(existing)

		for _, c := range plan.Insert {
			args, err := writeArgs(c)
			if err != nil {
				return Plan{}, err
			}
			if _, err := tx.ExecContext(ctx, insertCorrelation,
				c.ID, c.UserID, c.Key, c.Title, c.PrimarySystem, args.related, c.Explanation,
				c.ActionTip, c.Confidence, c.Priority, args.evidence, c.Source, c.BasisFingerprint,
				c.DetectedAt,
			); err != nil {
				return Plan{}, fmt.Errorf("insert correlation %s: %w", c.Key, err)
			}
		}

		for _, c := range plan.Refresh {
			args, err := writeArgs(c)
			if err != nil {
				return Plan{}, err
			}
			if err := repository.ExecExpectOne(ctx, tx, refreshCorrelation,
				c.ID, c.Title, args.related, c.Explanation, c.ActionTip,
				c.Confidence, c.Priority, args.evidence, c.Source,
				c.BasisFingerprint, c.DetectedAt,
			); err != nil {
				return Plan{}, fmt.Errorf("refresh correlation %s: %w", c.Key, err)
			}
		}

		for _, id := range plan.Retire {
			if _, err := tx.ExecContext(ctx,
				"UPDATE correlations SET is_active = false WHERE id = $1 AND NOT is_dismissed",
				id,
			); err != nil {
				return Plan{}, fmt.Errorf("retire correlation %s: %w", id, err)
			}
		}

		return plan, nil
	})
}

func (r *sqlRepository) List(ctx context.Context, userID string, includeDismissed bool) ([]Correlation, error) {
	visible := "c.is_active AND NOT c.is_dismissed"
	if includeDismissed {
		visible = "(c.is_active OR c.is_dismissed)"
	}

	q, args := query.
		NewBuilder(projection, listSort...).
		WhereEquals("UserID", userID).
		WhereClause(visible).
		Build()

	rows, err := repository.QueryMany(ctx, r.db, q, args, scanCorrelation)
	if err != nil {
		return nil, fmt.Errorf("query correlations: %w", err)
	}
	return rows, nil
}

func (r *sqlRepository) Dismiss(ctx context.Context, userID string, id uuid.UUID) (*Correlation, error) {
	q := `
		UPDATE correlations
		SET is_dismissed = true, is_active = false, dismissed_at = COALESCE(dismissed_at, now())
		WHERE id = $1 AND user_id = $2
		RETURNING ` + projection.Returning()

	c, err := repository.QueryOne(ctx, r.db, q, []any{id, userID}, scanCorrelation)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &c, nil
}

type jsonArgs struct {
	related  string
	evidence string
}

func writeArgs(c Correlation) (jsonArgs, error) {
	related, err := encodeJSON(c.RelatedSystems)
	if err != nil {
		return jsonArgs{}, fmt.Errorf("encode related_systems: %w", err)
	}
	evidence, err := encodeJSON(c.EvidenceKeys)
	if err != nil {
		return jsonArgs{}, fmt.Errorf("encode evidence_keys: %w", err)
	}
	return jsonArgs{related: related, evidence: evidence}, nil
}
