package findings

import (
	"net/url"

	"github.com/JaimeStill/vitalis/internal/taxonomy"
	"github.com/JaimeStill/vitalis/pkg/query"
	"github.com/JaimeStill/vitalis/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "findings", "f").
	Project("id", "ID").
	Project("user_id", "UserID").
	Project("document_id", "DocumentID").
	Project("body_system", "BodySystem").
	Project("finding_key", "Key").
	Project("title", "Title").
	Project("value", "Value").
	Project("value_numeric", "ValueNumeric").
	Project("unit", "Unit").
	Project("status", "Status").
	Project("severity", "Severity").
	Project("range_min", "RangeMin").
	Project("range_max", "RangeMax").
	Project("range_text", "RangeText").
	Project("explanation", "Explanation").
	Project("action_tip", "ActionTip").
	Project("priority", "Priority").
	Project("is_current", "IsCurrent").
	Project("previous_finding_id", "PreviousFindingID").
	Project("superseded_by", "SupersededBy").
	Project("evolution_trend", "EvolutionTrend").
	Project("evolution_note", "EvolutionNote").
	Project("measured_at", "MeasuredAt").
	Project("created_at", "CreatedAt")

var displaySort = []query.SortField{
	{Field: "BodySystem"},
	{Field: "Priority"},
	{Field: "Key"},
	{Field: "MeasuredAt", Descending: true},
}

var historySort = []query.SortField{
	{Field: "MeasuredAt", Descending: true},
	{Field: "CreatedAt", Descending: true},
}

// Filters narrows finding listings.
type Filters struct {
	BodySystem *taxonomy.BodySystem `json:"body_system,omitempty"`
	Status     *taxonomy.Status     `json:"status,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("BodySystem", f.BodySystem).
		WhereEquals("Status", f.Status)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Unknown body systems and statuses are ignored rather than coerced.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("body_system"); s != "" {
		if bs := taxonomy.ParseBodySystem(s); string(bs) == s {
			f.BodySystem = &bs
		}
	}

	if s := values.Get("status"); s != "" {
		if st := taxonomy.ParseStatus(s); string(st) == s {
			f.Status = &st
		}
	}

	return f
}

func scanFinding(s repository.Scanner) (Finding, error) {
	var f Finding
	err := s.Scan(
		&f.ID,
		&f.UserID,
		&f.DocumentID,
		&f.BodySystem,
		&f.Key,
		&f.Title,
		&f.Value,
		&f.ValueNumeric,
		&f.Unit,
		&f.Status,
		&f.Severity,
		&f.ReferenceRange.Min,
		&f.ReferenceRange.Max,
		&f.ReferenceRange.Text,
		&f.Explanation,
		&f.ActionTip,
		&f.Priority,
		&f.IsCurrent,
		&f.PreviousFindingID,
		&f.SupersededBy,
		&f.EvolutionTrend,
		&f.EvolutionNote,
		&f.MeasuredAt,
		&f.CreatedAt,
	)
	return f, err
}
