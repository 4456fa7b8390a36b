package correlations

import (
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/vitalis/internal/taxonomy"
	"github.com/JaimeStill/vitalis/pkg/query"
	"github.com/JaimeStill/vitalis/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "correlations", "c").
	Project("id", "ID").
	Project("user_id", "UserID").
	Project("correlation_key", "Key").
	Project("title", "Title").
	Project("primary_system", "PrimarySystem").
	Project("related_systems", "RelatedSystems").
	Project("explanation", "Explanation").
	Project("action_tip", "ActionTip").
	Project("confidence", "Confidence").
	Project("priority", "Priority").
	Project("evidence_keys", "EvidenceKeys").
	Project("source", "Source").
	Project("basis_fingerprint", "BasisFingerprint").
	Project("is_active", "IsActive").
	Project("is_dismissed", "IsDismissed").
	Project("detected_at", "DetectedAt").
	Project("dismissed_at", "DismissedAt")

var listSort = []query.SortField{
	{Field: "IsDismissed"},
	{Field: "Confidence", Descending: true},
	{Field: "DetectedAt", Descending: true},
}

func scanCorrelation(s repository.Scanner) (Correlation, error) {
	var (
		c        Correlation
		related  []byte
		evidence []byte
	)

	err := s.Scan(
		&c.ID,
		&c.UserID,
		&c.Key,
		&c.Title,
		&c.PrimarySystem,
		&related,
		&c.Explanation,
		&c.ActionTip,
		&c.Confidence,
		&c.Priority,
		&evidence,
		&c.Source,
		&c.BasisFingerprint,
		&c.IsActive,
		&c.IsDismissed,
		&c.DetectedAt,
		&c.DismissedAt,
	)
	if err != nil {
		return Correlation{}, err
	}

	c.RelatedSystems = []taxonomy.BodySystem{}
	if err := decodeJSON(related, &c.RelatedSystems); err != nil {
		return Correlation{}, fmt.Errorf("decode related_systems: %w", err)
	}
	c.EvidenceKeys = []string{}
	if err := decodeJSON(evidence, &c.EvidenceKeys); err != nil {
		return Correlation{}, fmt.Errorf("decode evidence_keys: %w", err)
	}

	return c, nil
}

func decodeJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
