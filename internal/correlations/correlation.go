// Package correlations links findings across body systems.
//
// Detectors propose candidates from a user's current findings. Each candidate
// is identified by a stable key and carries a fingerprint of the findings it
// rests on. A dismissed correlation stays dismissed until that fingerprint
// changes, and dismissed rows are never rewritten by later detections.
package correlations

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/internal/findings"
	"github.com/JaimeStill/vitalis/internal/taxonomy"
)

// Source names the detector that produced a correlation.
type Source string

const (
	SourceRules Source = "rules"
	SourceModel Source = "model"
)

// Candidate is a correlation proposed by a detector.
type Candidate struct {
	Title          string                `json:"title"`
	PrimarySystem  taxonomy.BodySystem   `json:"primary_system"`
	RelatedSystems []taxonomy.BodySystem `json:"related_systems"`
	Explanation    string                `json:"explanation"`
	ActionTip      string                `json:"action_tip"`
	Confidence     float64               `json:"confidence"`
	Priority       taxonomy.Priority     `json:"priority"`
	EvidenceKeys   []string              `json:"evidence_keys"`
	Source         Source                `json:"source"`
}

// Key returns the stable identity of the candidate. Rule titles are fixed by
// the rule file, so rule candidates are keyed on their title. Model titles are
// reworded from run to run, so model candidates that name evidence are keyed
// on the evidence keys instead.
func (c Candidate) Key() string {
	if c.Source == SourceModel && len(c.EvidenceKeys) > 0 {
		return EvidenceKey(c.PrimarySystem, c.RelatedSystems, c.EvidenceKeys)
	}
	return Key(c.PrimarySystem, c.RelatedSystems, c.Title)
}

// Correlation is a stored correlation row.
type Correlation struct {
	ID               uuid.UUID             `json:"id"`
	UserID           string                `json:"user_id"`
	Key              string                `json:"correlation_key"`
	Title            string                `json:"title"`
	PrimarySystem    taxonomy.BodySystem   `json:"primary_system"`
	RelatedSystems   []taxonomy.BodySystem `json:"related_systems"`
	Explanation      string                `json:"explanation"`
	ActionTip        string                `json:"action_tip"`
	Confidence       float64               `json:"confidence"`
	Priority         taxonomy.Priority     `json:"priority"`
	EvidenceKeys     []string              `json:"evidence_keys"`
	Source           Source                `json:"source"`
	BasisFingerprint string                `json:"basis_fingerprint"`
	IsActive         bool                  `json:"is_active"`
	IsDismissed      bool                  `json:"is_dismissed"`
	DetectedAt       time.Time             `json:"detected_at"`
	DismissedAt      *time.Time            `json:"dismissed_at,omitempty"`
}

// Key derives a correlation identity from the primary system, the sorted and
// de-duplicated related systems, and the normalized title.
func Key(primary taxonomy.BodySystem, related []taxonomy.BodySystem, title string) string {
	return identity(primary, related, normalizeTitle(title))
}

// EvidenceKey derives a correlation identity from the primary system, the
// related systems, and the sorted set of evidence finding keys.
func EvidenceKey(primary taxonomy.BodySystem, related []taxonomy.BodySystem, evidence []string) string {
	keys := slices.Clone(evidence)
	slices.Sort(keys)
	return identity(primary, related, "evidence:"+strings.Join(slices.Compact(keys), ","))
}

func identity(primary taxonomy.BodySystem, related []taxonomy.BodySystem, tail string) string {
	rel := make([]string, 0, len(related))
	for _, r := range related {
		if r != primary {
			rel = append(rel, string(r))
		}
	}
	slices.Sort(rel)
	rel = slices.Compact(rel)

	return fmt.Sprintf("%s|%s|%s", primary, strings.Join(rel, ","), tail)
}

// Fingerprint hashes the (system, key, status, value) of every finding the
// correlation rests on. Order of the input does not matter.
func Fingerprint(basis []findings.Finding) string {
	parts := make([]string, 0, len(basis))
	for _, f := range basis {
		parts = append(parts, strings.Join([]string{string(f.BodySystem), f.Key, string(f.Status), f.Value}, "\x1f"))
	}
	slices.Sort(parts)

	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1e")))
	return hex.EncodeToString(sum[:])
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
