package findings

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JaimeStill/vitalis/internal/taxonomy"
)

// StabilityBand is the relative numeric change below which two values are
// considered equivalent.
const StabilityBand = 0.05

// Observation is the part of a finding that trend computation reads.
type Observation struct {
	Value   string
	Numeric *float64
	Unit    string
	Status  taxonomy.Status
}

// ObservationOf extracts the trend inputs from a stored row.
func ObservationOf(f *Finding) Observation {
	return Observation{Value: f.Value, Numeric: f.ValueNumeric, Unit: f.Unit, Status: f.Status}
}

// ObservationOfDraft extracts the trend inputs from a draft.
func ObservationOfDraft(d Draft) Observation {
	return Observation{Value: d.Value, Numeric: d.ValueNumeric, Unit: d.Unit, Status: d.Status}
}

// ComputeTrend classifies next relative to prev.
//
// A status transition into good is an improvement and a transition out of
// good is a decline, whatever the numbers did: for adverse metrics a rising
// value is a decline, and the analyzer's status is the authoritative signal.
// The transition check runs before the stability band, so good 100 followed
// by attention 102 is a decline, not stable. Without such a transition, numeric pairs are stable inside StabilityBand
// and otherwise follow the sign of the delta. Non-numeric pairs are stable.
func ComputeTrend(prev, next Observation) taxonomy.Trend {
	wasGood := prev.Status == taxonomy.StatusGood
	isGood := next.Status == taxonomy.StatusGood

	switch {
	case !wasGood && isGood:
		return taxonomy.TrendImproved
	case wasGood && !isGood:
		return taxonomy.TrendDeclined
	}

	if prev.Numeric == nil || next.Numeric == nil {
		return taxonomy.TrendStable
	}

	if math.Abs(percentChange(*prev.Numeric, *next.Numeric)) < StabilityBand {
		return taxonomy.TrendStable
	}

	switch delta := *next.Numeric - *prev.Numeric; {
	case delta > 0:
		return taxonomy.TrendImproved
	case delta < 0:
		return taxonomy.TrendDeclined
	default:
		return taxonomy.TrendStable
	}
}

// EvolutionNote renders a human-readable before/after description, for
// example "Vitamin D: 18 ng/mL (concern) → 35 ng/mL (good), improved (+94.4%)".
func EvolutionNote(title string, prev, next Observation, trend taxonomy.Trend) string {
	var sb strings.Builder

	if title != "" {
		sb.WriteString(title)
		sb.WriteString(": ")
	}

	fmt.Fprintf(&sb, "%s (%s) → %s (%s), %s",
		display(prev), prev.Status,
		display(next), next.Status,
		trend,
	)

	if prev.Numeric != nil && next.Numeric != nil && *prev.Numeric != 0 {
		fmt.Fprintf(&sb, " (%+.1f%%)", percentChange(*prev.Numeric, *next.Numeric)*100)
	}

	return sb.String()
}

func percentChange(old, new float64) float64 {
	if old == 0 {
		return 0
	}
	return (new - old) / old
}

func display(o Observation) string {
	v := strings.TrimSpace(o.Value)
	if v == "" && o.Numeric != nil {
		v = strconv.FormatFloat(*o.Numeric, 'f', -1, 64)
	}
	if v == "" {
		v = "n/a"
	}
	if o.Unit != "" && !strings.HasSuffix(v, o.Unit) {
		v += " " + o.Unit
	}
	return v
}
