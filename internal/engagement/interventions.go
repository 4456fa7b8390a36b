package engagement

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/internal/taxonomy"
)

// Trigger names why an intervention was raised.
type Trigger string

const (
	TriggerAllergy  Trigger = "allergy"
	TriggerCritical Trigger = "critical_finding"
)

// CriticalSeverity is the lowest severity of a concern finding that raises
// an intervention.
const CriticalSeverity = 4

// Intervention is an alert the user should act on.
type Intervention struct {
	ID         uuid.UUID `json:"id"`
	UserID     string    `json:"user_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Trigger    Trigger   `json:"trigger"`
	FindingKey *string   `json:"finding_key,omitempty"`
	Title      string    `json:"title"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

// InterventionStore persists interventions.
type InterventionStore interface {
	SaveInterventions(ctx context.Context, items []Intervention) error
}

type interventions struct {
	store InterventionStore
}

// NewInterventions returns the effect raising allergy and critical-finding alerts.
func NewInterventions(store InterventionStore) Effect {
	return &interventions{store: store}
}

func (i *interventions) Name() string { return "interventions" }

func (i *interventions) Apply(ctx context.Context, ev Event) error {
	items := Interventions(ev, time.Now().UTC())
	if len(items) == 0 {
		return nil
	}
	return i.store.SaveInterventions(ctx, items)
}

// Interventions derives the alerts for ev: one per allergy warning in the
// analysis, and one per concern finding at or above CriticalSeverity.
func Interventions(ev Event, now time.Time) []Intervention {
	var items []Intervention

	if ev.Analysis != nil {
		for _, w := range ev.Analysis.Common.AllergyWarnings {
			if w = strings.TrimSpace(w); w == "" {
				continue
			}
			items = append(items, Intervention{
				ID:         uuid.New(),
				UserID:     ev.UserID,
				DocumentID: ev.DocumentID,
				Trigger:    TriggerAllergy,
				Title:      "Allergy warning",
				Detail:     w,
				CreatedAt:  now,
			})
		}
	}

	for _, f := range ev.Findings {
		if f.Status != taxonomy.StatusConcern || f.Severity == nil || *f.Severity < CriticalSeverity {
			continue
		}
		if strings.HasPrefix(f.Key, "allergy_") {
			continue
		}
		key := f.Key
		detail := f.Explanation
		if f.ActionTip != "" {
			detail += " " + f.ActionTip
		}
		items = append(items, Intervention{
			ID:         uuid.New(),
			UserID:     ev.UserID,
			DocumentID: ev.DocumentID,
			Trigger:    TriggerCritical,
			FindingKey: &key,
			Title:      f.Title,
			Detail:     strings.TrimSpace(detail),
			CreatedAt:  now,
		})
	}

	return items
}
