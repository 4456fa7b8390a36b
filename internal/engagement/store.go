package engagement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/pkg/repository"
)

const insertRecommendation = `
	INSERT INTO recommendations(id, user_id, document_id, title, body, priority, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

const insertIntervention = `
	INSERT INTO interventions(id, user_id, document_id, trigger, finding_key, title, detail, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const upsertMealPlanRefresh = `
	INSERT INTO meal_plan_refreshes(user_id, document_id, requested_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id) DO UPDATE
	SET document_id = EXCLUDED.document_id, requested_at = EXCLUDED.requested_at`

// Store is the PostgreSQL implementation of the effect stores.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store on db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) SaveRecommendations(ctx context.Context, recs []Recommendation) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		for _, r := range recs {
			if _, err := tx.ExecContext(ctx, insertRecommendation,
				r.ID, r.UserID, r.DocumentID, r.Title, r.Body, r.Priority, r.CreatedAt,
			); err != nil {
				return struct{}{}, fmt.Errorf("insert recommendation: %w", err)
			}
		}
		return struct{}{}, nil
	})
	return err
}

func (s *Store) SaveInterventions(ctx context.Context, items []Intervention) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		for _, i := range items {
			if _, err := tx.ExecContext(ctx, insertIntervention,
				i.ID, i.UserID, i.DocumentID, i.Trigger, i.FindingKey, i.Title, i.Detail, i.CreatedAt,
			); err != nil {
				return struct{}{}, fmt.Errorf("insert intervention: %w", err)
			}
		}
		return struct{}{}, nil
	})
	return err
}

func (s *Store) RequestMealPlanRefresh(ctx context.Context, userID string, documentID uuid.UUID, at time.Time) error {
	return repository.ExecExpectOne(ctx, s.db, upsertMealPlanRefresh, userID, documentID, at)
}
