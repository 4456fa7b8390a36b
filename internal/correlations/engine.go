package correlations

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/internal/findings"
)

// FindingsReader supplies the current findings a detection runs over.
type FindingsReader interface {
	Current(ctx context.Context, userID string, filters findings.Filters) ([]findings.Finding, error)
}

type engine struct {
	repo     Repository
	findings FindingsReader
	detector *Composite
	logger   *slog.Logger
	now      func() time.Time
}

// New creates the correlation engine.
func New(repo Repository, reader FindingsReader, detector *Composite, logger *slog.Logger) System {
	return &engine{
		repo:     repo,
		findings: reader,
		detector: detector,
		logger:   logger.With("system", "correlations"),
		now:      time.Now,
	}
}

func (e *engine) Handler() *Handler {
	return NewHandler(e, e.logger)
}

func (e *engine) Detect(ctx context.Context, userID, language string) (int, error) {
	current, err := e.findings.Current(ctx, userID, findings.Filters{})
	if err != nil {
		return 0, fmt.Errorf("%w: load findings: %w", ErrDetectionFailed, err)
	}

	detection, err := e.detector.Detect(ctx, Input{
		UserID:   userID,
		Language: language,
		Findings: current,
	})
	if err != nil {
		return 0, err
	}

	resolved := Resolve(detection.Candidates, current)
	now := e.now().UTC()

	plan, err := e.repo.Sync(ctx, userID, func(existing []Correlation) Plan {
		return Reconcile(userID, existing, resolved, detection.Ran, now)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: store: %w", ErrDetectionFailed, err)
	}

	e.logger.InfoContext(ctx, "correlations detected",
		"user_id", userID,
		"candidates", len(resolved),
		"sources", detection.Ran,
		"inserted", len(plan.Insert),
		"refreshed", len(plan.Refresh),
		"retired", len(plan.Retire),
	)

	return plan.Stored(), nil
}

func (e *engine) List(ctx context.Context, userID string, includeDismissed bool) ([]Correlation, error) {
	return e.repo.List(ctx, userID, includeDismissed)
}

func (e *engine) Dismiss(ctx context.Context, userID string, id uuid.UUID) (*Correlation, error) {
	c, err := e.repo.Dismiss(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "correlation dismissed", "user_id", userID, "id", id, "key", c.Key)
	return c, nil
}

// Resolved is a candidate with its identity and basis fingerprint.
type Resolved struct {
	Candidate
	Key         string
	Fingerprint string
}

// Resolve computes the identity and fingerprint of each candidate. The basis
// is the findings named as evidence, or every finding in the candidate's
// systems when no evidence key matched.
func Resolve(candidates []Candidate, current []findings.Finding) []Resolved {
	out := make([]Resolved, 0, len(candidates))

	for _, c := range candidates {
		var basis []findings.Finding
		for _, f := range current {
			if slices.Contains(c.EvidenceKeys, f.Key) {
				basis = append(basis, f)
			}
		}
		if len(basis) == 0 {
			for _, f := range current {
				if f.BodySystem == c.PrimarySystem || slices.Contains(c.RelatedSystems, f.BodySystem) {
					basis = append(basis, f)
				}
			}
		}

		out = append(out, Resolved{
			Candidate:   c,
			Key:         c.Key(),
			Fingerprint: Fingerprint(basis),
		})
	}

	return out
}

// Plan is the set of writes a detection makes.
type Plan struct {
	Insert  []Correlation
	Refresh []Correlation
	Retire  []uuid.UUID
}

// Stored is the number of correlations written as active.
func (p Plan) Stored() int {
	return len(p.Insert) + len(p.Refresh)
}

// Reconcile decides how detected candidates change the stored rows:
//   - a dismissed row with the same key and fingerprint suppresses the candidate
//   - an active row with the same key is refreshed in place
//   - otherwise a new active row is inserted, even next to a dismissed one
//   - active rows not detected again are retired when their source ran
//
// Dismissed rows never appear in the plan. Rows whose detector failed or did
// not run keep standing.
func Reconcile(userID string, existing []Correlation, resolved []Resolved, ran []Source, now time.Time) Plan {
	plan := Plan{}
	seen := map[string]bool{}

	for _, r := range resolved {
		suppressed := slices.ContainsFunc(existing, func(c Correlation) bool {
			return c.IsDismissed && c.Key == r.Key && c.BasisFingerprint == r.Fingerprint
		})
		if suppressed || seen[r.Key] {
			continue
		}
		seen[r.Key] = true

		i := slices.IndexFunc(existing, func(c Correlation) bool {
			return c.IsActive && !c.IsDismissed && c.Key == r.Key
		})
		if i >= 0 {
			row := existing[i]
			apply(&row, r, now)
			plan.Refresh = append(plan.Refresh, row)
			continue
		}

		row := Correlation{
			ID:       uuid.New(),
			UserID:   userID,
			IsActive: true,
		}
		apply(&row, r, now)
		plan.Insert = append(plan.Insert, row)
	}

	for _, c := range existing {
		if c.IsActive && !c.IsDismissed && !seen[c.Key] && slices.Contains(ran, c.Source) {
			plan.Retire = append(plan.Retire, c.ID)
		}
	}

	return plan
}

func apply(row *Correlation, r Resolved, now time.Time) {
	row.Key = r.Key
	row.Title = r.Title
	row.PrimarySystem = r.PrimarySystem
	row.RelatedSystems = r.RelatedSystems
	row.Explanation = r.Explanation
	row.ActionTip = r.ActionTip
	row.Confidence = r.Confidence
	row.Priority = r.Priority
	row.EvidenceKeys = r.EvidenceKeys
	row.Source = r.Source
	row.BasisFingerprint = r.Fingerprint
	row.DetectedAt = now
}
