// Package engagement runs the side-effects that follow a processed document:
// recommendations, meal-plan refresh requests, interventions and
// gamification. Each effect runs in its own failure boundary and none of them
// can change the outcome of the document.
package engagement

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/internal/analysis"
	"github.com/JaimeStill/vitalis/internal/findings"
	"github.com/JaimeStill/vitalis/internal/taxonomy"
	"github.com/JaimeStill/vitalis/internal/users"
)

// ErrSideEffectFailed wraps every effect failure, including panics and timeouts.
var ErrSideEffectFailed = errors.New("side effect failed")

// Event describes a document that reached the downstream stage.
type Event struct {
	UserID       string
	DocumentID   uuid.UUID
	DocumentType taxonomy.DocumentType
	BodySystem   taxonomy.BodySystem
	User         users.Context
	Analysis     *analysis.Result
	Findings     []findings.Draft
	Store        *findings.StoreResult
	Correlations int
}

// Improved reports whether any stored finding improved on its predecessor.
func (e Event) Improved() bool {
	if e.Store == nil {
		return false
	}
	for _, ev := range e.Store.EvolutionFindings {
		if ev.Trend == taxonomy.TrendImproved {
			return true
		}
	}
	return false
}

// Effect is one downstream side-effect.
type Effect interface {
	Name() string
	Apply(ctx context.Context, ev Event) error
}
