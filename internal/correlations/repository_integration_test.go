//go:build integration

package correlations_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/internal/correlations"
	"github.com/JaimeStill/vitalis/internal/taxonomy"
	"github.com/JaimeStill/vitalis/internal/testdb"
)

func candidate(userID string) correlations.Correlation {
	related := []taxonomy.BodySystem{"metabolic"}
	title := "Glucose and triglycerides rising together"
	return correlations.Correlation{
		ID:               uuid.New(),
		UserID:           userID,
		Key:              correlations.Key("cardiovascular", related, title),
		Title:            title,
		PrimarySystem:    "cardiovascular",
		RelatedSystems:   related,
		Explanation:      "Both markers moved out of range.",
		ActionTip:        "Review refined carbohydrate intake.",
		Confidence:       0.8,
		Priority:         taxonomy.PriorityHigh,
		EvidenceKeys:     []string{"fasting_glucose", "triglycerides"},
		Source:           correlations.SourceRules,
		BasisFingerprint: "fp-1",
		IsActive:         true,
		DetectedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestRepositorySyncListDismiss(t *testing.T) {
	db := testdb.Postgres(t)
	repo := correlations.NewRepository(db)
	ctx := context.Background()

	const user = "user-correlations"
	c := candidate(user)

	var seen []correlations.Correlation
	plan, err := repo.Sync(ctx, user, func(existing []correlations.Correlation) correlations.Plan {
		seen = existing
		return correlations.Plan{Insert: []correlations.Correlation{c}}
	})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(seen) != 0 {
		t.Errorf("existing on first sync = %d, want 0", len(seen))
	}
	if plan.Stored() != 1 {
		t.Errorf("Stored() = %d, want 1", plan.Stored())
	}

	active, err := repo.List(ctx, user, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("len(active) = %d, want 1", len(active))
	}
	got := active[0]
	if got.Key != c.Key {
		t.Errorf("Key = %s, want %s", got.Key, c.Key)
	}
	if len(got.EvidenceKeys) != 2 || len(got.RelatedSystems) != 1 {
		t.Errorf("json columns = %v / %v, want round-tripped slices", got.EvidenceKeys, got.RelatedSystems)
	}

	dismissed, err := repo.Dismiss(ctx, user, c.ID)
	if err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if !dismissed.IsDismissed || dismissed.IsActive || dismissed.DismissedAt == nil {
		t.Errorf("dismissed = %+v, want dismissed and inactive with timestamp", dismissed)
	}

	active, err = repo.List(ctx, user, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("len(active) after dismiss = %d, want 0", len(active))
	}

	all, err := repo.List(ctx, user, true)
	if err != nil {
		t.Fatalf("List(includeDismissed): %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len(all) = %d, want 1", len(all))
	}

	if _, err := repo.Sync(ctx, user, func(existing []correlations.Correlation) correlations.Plan {
		seen = existing
		return correlations.Plan{}
	}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(seen) != 1 || !seen[0].IsDismissed {
		t.Errorf("existing after dismiss = %+v, want the dismissed row", seen)
	}
}

func TestRepositoryDismissOtherUser(t *testing.T) {
	db := testdb.Postgres(t)
	repo := correlations.NewRepository(db)
	ctx := context.Background()

	c := candidate("owner")
	if _, err := repo.Sync(ctx, "owner", func([]correlations.Correlation) correlations.Plan {
		return correlations.Plan{Insert: []correlations.Correlation{c}}
	}); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	_, err := repo.Dismiss(ctx, "intruder", c.ID)
	if !errors.Is(err, correlations.ErrNotFound) {
		t.Errorf("Dismiss(other user) = %v, want %v", err, correlations.ErrNotFound)
	}
}
