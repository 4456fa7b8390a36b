package engagement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/internal/analysis"
	"github.com/JaimeStill/vitalis/internal/prompts"
	"github.com/JaimeStill/vitalis/internal/taxonomy"
	"github.com/JaimeStill/vitalis/pkg/formatting"
)

const maxRecommendations = 5

// Recommendation is a personalized tip generated after a document.
type Recommendation struct {
	ID         uuid.UUID         `json:"id"`
	UserID     string            `json:"user_id"`
	DocumentID uuid.UUID         `json:"document_id"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Priority   taxonomy.Priority `json:"priority"`
	CreatedAt  time.Time         `json:"created_at"`
}

// RecommendationStore persists generated recommendations.
type RecommendationStore interface {
	SaveRecommendations(ctx context.Context, recs []Recommendation) error
}

type recommendations struct {
	gen     analysis.Generator
	prompts prompts.Source
	store   RecommendationStore
}

// NewRecommendations returns the effect that asks a model for follow-up tips.
func NewRecommendations(gen analysis.Generator, src prompts.Source, store RecommendationStore) Effect {
	return &recommendations{gen: gen, prompts: src, store: store}
}

func (r *recommendations) Name() string { return "recommendations" }

type recommendResponse struct {
	Recommendations []struct {
		Title    string `json:"title"`
		Body     string `json:"body"`
		Priority string `json:"priority"`
	} `json:"recommendations"`
}

func (r *recommendations) Apply(ctx context.Context, ev Event) error {
	var summary any
	if ev.Analysis != nil {
		summary = ev.Analysis.Common
	}

	system, err := prompts.Compose(ctx, r.prompts, prompts.StageRecommend, ev.User.Lang(),
		prompts.Section{Title: "User profile", Value: ev.User},
		prompts.Section{Title: "Analysis summary", Value: summary},
		prompts.Section{Title: "Findings", Value: ev.Findings},
	)
	if err != nil {
		return err
	}

	content, err := r.gen.Generate(ctx, system, fmt.Sprintf(
		"Write recommendations for a %s document about the %s system. Respond in language %q.",
		ev.DocumentType, ev.BodySystem, ev.User.Lang(),
	))
	if err != nil {
		return fmt.Errorf("generate recommendations: %w", err)
	}

	resp, err := formatting.Parse[recommendResponse](content)
	if err != nil {
		return fmt.Errorf("parse recommendations: %w", err)
	}

	now := time.Now().UTC()
	recs := make([]Recommendation, 0, len(resp.Recommendations))
	for _, item := range resp.Recommendations {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		recs = append(recs, Recommendation{
			ID:         uuid.New(),
			UserID:     ev.UserID,
			DocumentID: ev.DocumentID,
			Title:      title,
			Body:       strings.TrimSpace(item.Body),
			Priority:   taxonomy.ParsePriority(item.Priority),
			CreatedAt:  now,
		})
		if len(recs) == maxRecommendations {
			break
		}
	}

	if len(recs) == 0 {
		return nil
	}
	return r.store.SaveRecommendations(ctx, recs)
}
