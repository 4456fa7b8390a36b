package engagement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MealPlanStore records that a user's meal plan should be regenerated.
// Requests are upserted: one pending request per user.
type MealPlanStore interface {
	RequestMealPlanRefresh(ctx context.Context, userID string, documentID uuid.UUID, at time.Time) error
}

type mealPlan struct {
	store MealPlanStore
}

// NewMealPlanRefresh returns the effect that requests a meal-plan refresh
// after lab results arrive.
func NewMealPlanRefresh(store MealPlanStore) Effect {
	return &mealPlan{store: store}
}

func (m *mealPlan) Name() string { return "meal_plan_refresh" }

func (m *mealPlan) Apply(ctx context.Context, ev Event) error {
	if !ev.DocumentType.IsLab() {
		return nil
	}
	return m.store.RequestMealPlanRefresh(ctx, ev.UserID, ev.DocumentID, time.Now().UTC())
}
