//go:build integration

package engagement_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/internal/engagement"
	"github.com/JaimeStill/vitalis/internal/taxonomy"
	"github.com/JaimeStill/vitalis/internal/testdb"
)

func TestStorePersistsEffects(t *testing.T) {
	db := testdb.Postgres(t)
	store := engagement.NewStore(db)
	ctx := context.Background()

	const user = "user-effects"
	doc := testdb.SeedDocument(t, db, user)
	now := time.Now().UTC()

	recs := []engagement.Recommendation{
		{ID: uuid.New(), UserID: user, DocumentID: doc, Title: "Add fiber", Body: "Oats at breakfast.", Priority: taxonomy.PriorityMedium, CreatedAt: now},
		{ID: uuid.New(), UserID: user, DocumentID: doc, Title: "Walk daily", Body: "Thirty minutes.", Priority: taxonomy.PriorityLow, CreatedAt: now},
	}
	if err := store.SaveRecommendations(ctx, recs); err != nil {
		t.Fatalf("SaveRecommendations: %v", err)
	}

	key := "peanut_allergy"
	items := []engagement.Intervention{{
		ID: uuid.New(), UserID: user, DocumentID: doc, Trigger: engagement.TriggerAllergy,
		FindingKey: &key, Title: "Allergen detected", Detail: "Contains peanuts.", CreatedAt: now,
	}}
	if err := store.SaveInterventions(ctx, items); err != nil {
		t.Fatalf("SaveInterventions: %v", err)
	}

	later := testdb.SeedDocument(t, db, user)
	for _, d := range []uuid.UUID{doc, later} {
		if err := store.RequestMealPlanRefresh(ctx, user, d, now); err != nil {
			t.Fatalf("RequestMealPlanRefresh: %v", err)
		}
	}

	counts := map[string]int{
		"recommendations": 2,
		"interventions":   1,
	}
	for table, want := range counts {
		var got int
		if err := db.QueryRowContext(ctx, "SELECT count(*) FROM "+table+" WHERE user_id = $1", user).Scan(&got); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if got != want {
			t.Errorf("%s rows = %d, want %d", table, got, want)
		}
	}

	var refreshDoc uuid.UUID
	if err := db.QueryRowContext(ctx,
		"SELECT document_id FROM meal_plan_refreshes WHERE user_id = $1", user,
	).Scan(&refreshDoc); err != nil {
		t.Fatalf("read meal plan refresh: %v", err)
	}
	if refreshDoc != later {
		t.Errorf("refresh document = %s, want %s", refreshDoc, later)
	}
}

func TestRedisProgressRecord(t *testing.T) {
	client := testdb.Redis(t)
	progress := engagement.NewRedisProgress(client, "vitalis-test")
	ctx := context.Background()

	day := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	p, err := progress.Record(ctx, "user-1", engagement.Award{Points: 14, Day: day, Lab: true})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if p.Score != 14 || p.Uploads != 1 || p.Streak != 1 {
		t.Errorf("progress = %+v, want score 14, uploads 1, streak 1", p)
	}
	want := []string{engagement.AchievementFirstUpload, engagement.AchievementLabExplorer}
	if !slices.Equal(p.Achievements, want) {
		t.Errorf("Achievements = %v, want %v", p.Achievements, want)
	}

	p, err = progress.Record(ctx, "user-1", engagement.Award{Points: 10, Day: day.AddDate(0, 0, 1)})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if p.Score != 24 || p.Uploads != 2 || p.Streak != 2 {
		t.Errorf("progress = %+v, want score 24, uploads 2, streak 2", p)
	}
	if p.LastDay != "2026-05-11" {
		t.Errorf("LastDay = %s, want 2026-05-11", p.LastDay)
	}
}

func TestRedisProgressConcurrentRecords(t *testing.T) {
	client := testdb.Redis(t)
	progress := engagement.NewRedisProgress(client, "vitalis-test")
	ctx := context.Background()

	const writers = 3
	day := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := progress.Record(ctx, "user-2", engagement.Award{Points: 10, Day: day}); err != nil {
				t.Errorf("Record: %v", err)
			}
		}()
	}
	wg.Wait()

	vals, err := client.HMGet(ctx, "vitalis-test:progress:user-2", "score", "uploads").Result()
	if err != nil {
		t.Fatalf("HMGet: %v", err)
	}
	if vals[0] != "30" || vals[1] != "3" {
		t.Errorf("score, uploads = %v, %v, want 30, 3", vals[0], vals[1])
	}
}
