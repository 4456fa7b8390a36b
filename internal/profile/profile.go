// Package profile assembles a user's health profile: current findings grouped
// by body system, with their history on request, and active correlations.
package profile

import (
	"cmp"
	"slices"
	"time"

	"github.com/JaimeStill/vitalis/internal/correlations"
	"github.com/JaimeStill/vitalis/internal/findings"
	"github.com/JaimeStill/vitalis/internal/taxonomy"
)

// SystemProfile summarizes one body system.
type SystemProfile struct {
	Findings      []findings.Finding `json:"findings"`
	OverallStatus taxonomy.Status    `json:"overall_status"`
	HasEvolution  bool               `json:"has_evolution"`
}

// Profile is the read model returned by GetUserHealthProfile.
type Profile struct {
	UserID       string                                 `json:"user_id"`
	BodySystems  map[taxonomy.BodySystem]*SystemProfile `json:"body_systems"`
	Correlations []correlations.Correlation             `json:"correlations"`
	GeneratedAt  time.Time                              `json:"generated_at"`
}

// Build groups rows by body system. Status and evolution are computed from
// current rows only. Superseded rows are kept when includeHistory is set and
// dropped otherwise. Findings are ordered by priority then key, each key's
// rows newest first.
func Build(userID string, rows []findings.Finding, corrs []correlations.Correlation, includeHistory bool, now time.Time) *Profile {
	p := &Profile{
		UserID:       userID,
		BodySystems:  make(map[taxonomy.BodySystem]*SystemProfile),
		Correlations: corrs,
		GeneratedAt:  now,
	}
	if p.Correlations == nil {
		p.Correlations = []correlations.Correlation{}
	}

	statuses := make(map[taxonomy.BodySystem][]taxonomy.Status)
	for _, f := range rows {
		if !f.IsCurrent && !includeHistory {
			continue
		}

		sp, ok := p.BodySystems[f.BodySystem]
		if !ok {
			sp = &SystemProfile{Findings: []findings.Finding{}}
			p.BodySystems[f.BodySystem] = sp
		}
		sp.Findings = append(sp.Findings, f)

		if f.IsCurrent {
			statuses[f.BodySystem] = append(statuses[f.BodySystem], f.Status)
			if f.EvolutionTrend != nil {
				sp.HasEvolution = true
			}
		}
	}

	for system, sp := range p.BodySystems {
		sp.OverallStatus = taxonomy.Worst(statuses[system]...)
		sortFindings(sp.Findings)
	}

	return p
}

// sortFindings orders keys by the priority of their current row, then by key,
// and each key's rows newest first.
func sortFindings(rows []findings.Finding) {
	priority := make(map[string]int)
	for _, f := range rows {
		if f.IsCurrent {
			priority[f.Key] = f.Priority
		}
	}

	slices.SortStableFunc(rows, func(a, b findings.Finding) int {
		if a.Key != b.Key {
			return cmp.Or(
				cmp.Compare(priority[a.Key], priority[b.Key]),
				cmp.Compare(a.Key, b.Key),
			)
		}
		return cmp.Or(
			b.MeasuredAt.Compare(a.MeasuredAt),
			b.CreatedAt.Compare(a.CreatedAt),
		)
	})
}
