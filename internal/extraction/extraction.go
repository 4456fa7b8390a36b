// Package extraction normalizes analyzer results into finding drafts.
//
// Every analysis variant has an explicit mapping. Each emitted draft carries a
// non-empty key, a valid status, and a non-empty explanation; values the
// analyzer left out are filled rather than the draft being dropped.
package extraction

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/JaimeStill/vitalis/internal/analysis"
	"github.com/JaimeStill/vitalis/internal/findings"
	"github.com/JaimeStill/vitalis/internal/taxonomy"
)

// ErrExtractionEmpty marks a valid analysis that carried no findings. It is
// informational and never fails a document.
var ErrExtractionEmpty = errors.New("analysis produced no findings")

// Extract maps res to drafts. A nil result or one without signal yields an
// empty, non-nil slice. When res carries no details the variant is taken from
// the document type.
func Extract(dt taxonomy.DocumentType, bs taxonomy.BodySystem, res *analysis.Result, language string) []findings.Draft {
	b := newBuilder(language)
	if res == nil {
		return b.drafts
	}

	details := res.Details
	if details == nil {
		details = analysis.NewDetails(analysis.Route(dt))
	}

	switch d := details.(type) {
	case *analysis.FoodDetails:
		b.food(d)
	case *analysis.SupplementDetails:
		b.supplement(d)
	case *analysis.DrinkDetails:
		b.drink(d)
	case *analysis.LabDetails:
		b.lab(d)
	case *analysis.MedicationDetails:
		b.medication(d)
	case *analysis.SkincareDetails:
		b.skincare(d)
	case *analysis.GeneralDetails:
		b.general(d)
	}

	b.common(res.Common, bs)

	return b.drafts
}

// MeasuredAt returns the collection date reported by a lab analysis, or nil.
func MeasuredAt(res *analysis.Result) *time.Time {
	if res == nil {
		return nil
	}
	lab, ok := res.Details.(*analysis.LabDetails)
	if !ok || strings.TrimSpace(lab.CollectedAt) == "" {
		return nil
	}

	for _, layout := range []string{"2006-01-02", time.RFC3339, "02/01/2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(lab.CollectedAt)); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

type builder struct {
	lang    string
	drafts  []findings.Draft
	seen    map[string]int
	emitted map[string]bool
}

func newBuilder(language string) *builder {
	return &builder{
		lang:    language,
		drafts:  []findings.Draft{},
		seen:    make(map[string]int),
		emitted: make(map[string]bool),
	}
}

func (b *builder) add(d findings.Draft, fallbackTitle string) {
	if strings.TrimSpace(d.Title) == "" {
		d.Title = fallbackTitle
	}

	key := Slug(d.Key)
	if key == "" {
		key = Slug(d.Title)
	}
	if key == "" {
		key = "finding_" + strconv.Itoa(len(b.drafts)+1)
	}
	d.Key = b.unique(key)

	if d.Title == "" {
		d.Title = d.Key
	}

	d.Status = taxonomy.ParseStatus(string(d.Status))
	if strings.TrimSpace(d.Explanation) == "" {
		d.Explanation = Placeholder(b.lang)
	}
	d.Priority = 4 - d.Status.Rank()

	b.drafts = append(b.drafts, d)
}

// unique returns key, or key with the first free numeric suffix. Every
// emitted key is recorded, so a suffix never collides with a key the
// analyzer reported itself.
func (b *builder) unique(key string) string {
	candidate := key
	for n := max(b.seen[key], 1) + 1; b.emitted[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%d", key, n)
		b.seen[key] = n
	}
	b.emitted[candidate] = true
	return candidate
}

func (b *builder) measurement(m analysis.Measurement, fallbackTitle string) {
	numeric := m.ValueNumeric
	if !numeric.Valid {
		if v, ok := analysis.LeadingNumber(m.Value); ok {
			numeric = analysis.Some(v)
		}
	}

	value := strings.TrimSpace(m.Value)
	if value == "" && numeric.Valid {
		value = formatNumber(numeric.Value)
	}

	b.add(findings.Draft{
		Key:          m.Key,
		Title:        m.Title,
		Value:        value,
		ValueNumeric: numeric.Ptr(),
		Unit:         strings.TrimSpace(m.Unit),
		Status:       taxonomy.Status(m.Status),
		Severity:     severity(m.Severity),
		ReferenceRange: findings.Range{
			Min:  m.RangeMin.Ptr(),
			Max:  m.RangeMax.Ptr(),
			Text: strings.TrimSpace(m.RangeText),
		},
		Explanation: m.Explanation,
		ActionTip:   m.ActionTip,
	}, fallbackTitle)
}

func (b *builder) ingredient(prefix string, in analysis.Ingredient) {
	name := strings.TrimSpace(in.Name)

	value := strings.TrimSpace(in.Amount)
	if value == "" && in.AmountNumeric.Valid {
		value = formatNumber(in.AmountNumeric.Value)
	}

	var key string
	if s := Slug(name); s != "" {
		key = prefix + "_" + s
	}

	b.add(findings.Draft{
		Key:          key,
		Title:        name,
		Value:        value,
		ValueNumeric: in.AmountNumeric.Ptr(),
		Unit:         strings.TrimSpace(in.Unit),
		Status:       taxonomy.Status(in.Status),
		Explanation:  in.Note,
	}, "")
}

// phrases turns a list of short phrases into one draft each.
func (b *builder) phrases(prefix string, items []string, status taxonomy.Status, severity *int) {
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		b.add(findings.Draft{
			Key:         prefix + "_" + Slug(item),
			Title:       item,
			Value:       item,
			Status:      status,
			Severity:    severity,
			Explanation: item,
		}, "")
	}
}

func (b *builder) metric(key, title string, v analysis.Float, unit string, status taxonomy.Status) {
	if !v.Valid {
		return
	}
	b.add(findings.Draft{
		Key:          key,
		Title:        title,
		Value:        formatNumber(v.Value),
		ValueNumeric: v.Ptr(),
		Unit:         unit,
		Status:       status,
	}, "")
}

func (b *builder) common(c analysis.Common, bs taxonomy.BodySystem) {
	b.phrases("allergy", c.AllergyWarnings, taxonomy.StatusConcern, intPtr(4))
	b.phrases("interaction", c.InteractionWarnings, taxonomy.StatusAttention, intPtr(3))
	b.phrases("concern", c.Concerns, taxonomy.StatusAttention, nil)
	b.phrases("benefit", c.Benefits, taxonomy.StatusGood, nil)

	if c.HealthScore.Valid {
		score := math.Max(0, math.Min(100, c.HealthScore.Value))
		var tip string
		if len(c.Recommendations) > 0 {
			tip = strings.TrimSpace(c.Recommendations[0])
		}
		b.add(findings.Draft{
			Key:          "health_score",
			Title:        humanize(string(bs)) + " health score",
			Value:        formatNumber(score),
			ValueNumeric: &score,
			Unit:         "/100",
			Status:       scoreStatus(score),
			Explanation:  c.Summary,
			ActionTip:    tip,
		}, "")
	}
}

func (b *builder) food(d *analysis.FoodDetails) {
	b.metric("calories", "Calories", d.Calories, "kcal", taxonomy.StatusInfo)
	for i, n := range d.Nutrients {
		b.measurement(n, fmt.Sprintf("Nutrient %d", i+1))
	}
}

func (b *builder) supplement(d *analysis.SupplementDetails) {
	for _, in := range d.Ingredients {
		b.ingredient("supplement", in)
	}
}

func (b *builder) drink(d *analysis.DrinkDetails) {
	b.metric("drink_calories", "Calories", d.Calories, "kcal", taxonomy.StatusInfo)
	b.metric("drink_sugar", "Sugar", d.SugarG, "g", threshold(d.SugarG, 10, 25))
	b.metric("drink_caffeine", "Caffeine", d.CaffeineMG, "mg", threshold(d.CaffeineMG, 200, 400))
	b.metric("drink_alcohol", "Alcohol", d.AlcoholPercent, "%", threshold(d.AlcoholPercent, 0, 12))
}

func (b *builder) lab(d *analysis.LabDetails) {
	for i, m := range d.Markers {
		b.measurement(m, fmt.Sprintf("Marker %d", i+1))
	}
}

func (b *builder) medication(d *analysis.MedicationDetails) {
	if name := strings.TrimSpace(d.Name); name != "" {
		value := strings.TrimSpace(strings.Join(nonEmpty(d.Dosage, d.Frequency), ", "))
		if value == "" {
			value = name
		}
		b.add(findings.Draft{
			Key:         "medication_" + Slug(name),
			Title:       name,
			Value:       value,
			Status:      taxonomy.StatusInfo,
			Explanation: strings.Join(d.ActiveIngredients, ", "),
		}, "")
	}
	b.phrases("contraindication", d.Contraindications, taxonomy.StatusConcern, intPtr(4))
	b.phrases("side_effect", d.SideEffects, taxonomy.StatusInfo, nil)
}

func (b *builder) skincare(d *analysis.SkincareDetails) {
	for _, in := range d.Ingredients {
		b.ingredient("skincare", in)
	}
	b.phrases("irritant", d.Irritants, taxonomy.StatusAttention, intPtr(2))
}

func (b *builder) general(d *analysis.GeneralDetails) {
	for i, m := range d.Observations {
		b.measurement(m, fmt.Sprintf("Observation %d", i+1))
	}
	b.phrases("diagnosis", d.Diagnoses, taxonomy.StatusAttention, nil)
}

// Slug lowercases s and joins runs of letters and digits with underscores.
func Slug(s string) string {
	var sb strings.Builder
	pending := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
			pending = false
			continue
		}
		pending = true
	}
	return sb.String()
}

func scoreStatus(score float64) taxonomy.Status {
	switch {
	case score >= 70:
		return taxonomy.StatusGood
	case score >= 40:
		return taxonomy.StatusAttention
	default:
		return taxonomy.StatusConcern
	}
}

// threshold grades an intake value: above hi is concern, above lo attention.
func threshold(v analysis.Float, lo, hi float64) taxonomy.Status {
	switch {
	case !v.Valid:
		return taxonomy.StatusInfo
	case v.Value > hi:
		return taxonomy.StatusConcern
	case v.Value > lo:
		return taxonomy.StatusAttention
	default:
		return taxonomy.StatusGood
	}
}

func severity(f analysis.Float) *int {
	if !f.Valid {
		return nil
	}
	v := int(math.Round(f.Value))
	return intPtr(min(max(v, 1), 5))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func humanize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return "Overall"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func intPtr(v int) *int { return &v }
