// Package findings implements the longitudinal findings record.
// Each logical metric is identified by (user, body system, key). New
// observations supersede the current row for that key, preserving the old
// row, linking both directions of the chain, and recording an evolution trend.
package findings

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/internal/taxonomy"
)

// Range is a reference range reported alongside a measured value.
type Range struct {
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Text string   `json:"text,omitempty"`
}

// Finding is one stored observation row. Rows are never deleted.
type Finding struct {
	ID                uuid.UUID           `json:"id"`
	UserID            string              `json:"user_id"`
	DocumentID        uuid.UUID           `json:"document_id"`
	BodySystem        taxonomy.BodySystem `json:"body_system"`
	Key               string              `json:"finding_key"`
	Title             string              `json:"title"`
	Value             string              `json:"value"`
	ValueNumeric      *float64            `json:"value_numeric,omitempty"`
	Unit              string              `json:"unit,omitempty"`
	Status            taxonomy.Status     `json:"status"`
	Severity          *int                `json:"severity,omitempty"`
	ReferenceRange    Range               `json:"reference_range"`
	Explanation       string              `json:"explanation"`
	ActionTip         string              `json:"action_tip,omitempty"`
	Priority          int                 `json:"priority"`
	IsCurrent         bool                `json:"is_current"`
	PreviousFindingID *uuid.UUID          `json:"previous_finding_id,omitempty"`
	SupersededBy      *uuid.UUID          `json:"superseded_by,omitempty"`
	EvolutionTrend    *taxonomy.Trend     `json:"evolution_trend,omitempty"`
	EvolutionNote     string              `json:"evolution_note,omitempty"`
	MeasuredAt        time.Time           `json:"measured_at"`
	CreatedAt         time.Time           `json:"created_at"`
}

// Identity returns the logical key this row belongs to.
func (f *Finding) Identity() Identity {
	return Identity{UserID: f.UserID, BodySystem: f.BodySystem, Key: f.Key}
}

// Identity names a logical metric. At most one row per Identity is current.
type Identity struct {
	UserID     string
	BodySystem taxonomy.BodySystem
	Key        string
}

// Draft is a normalized observation awaiting storage.
type Draft struct {
	Key            string          `json:"finding_key"`
	Title          string          `json:"title"`
	Value          string          `json:"value"`
	ValueNumeric   *float64        `json:"value_numeric,omitempty"`
	Unit           string          `json:"unit,omitempty"`
	Status         taxonomy.Status `json:"status"`
	Severity       *int            `json:"severity,omitempty"`
	ReferenceRange Range           `json:"reference_range"`
	Explanation    string          `json:"explanation"`
	ActionTip      string          `json:"action_tip,omitempty"`
	Priority       int             `json:"priority"`
}

// StoreCommand carries one document's extracted findings for a single body system.
// MeasuredAt defaults to the time of the call.
type StoreCommand struct {
	UserID     string
	DocumentID uuid.UUID
	BodySystem taxonomy.BodySystem
	Findings   []Draft
	MeasuredAt *time.Time
}

// Evolution summarizes one supersession.
type Evolution struct {
	FindingKey    string         `json:"finding_key"`
	PreviousValue string         `json:"previous_value"`
	CurrentValue  string         `json:"current_value"`
	Trend         taxonomy.Trend `json:"trend"`
	Note          string         `json:"note"`
}

// StoreResult reports the outcome of a StoreCommand.
type StoreResult struct {
	StoredCount       int         `json:"stored_count"`
	FailedCount       int         `json:"failed_count"`
	EvolutionDetected bool        `json:"evolution_detected"`
	EvolutionFindings []Evolution `json:"evolution_findings"`
}
