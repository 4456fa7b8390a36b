package analysis

import (
	"encoding/json"
	"fmt"
)

// Variant selects the analyzer and the shape of Result.Details.
type Variant string

const (
	VariantFood       Variant = "food"
	VariantSupplement Variant = "supplement"
	VariantDrink      Variant = "drink"
	VariantLab        Variant = "lab"
	VariantMedication Variant = "medication"
	VariantSkincare   Variant = "skincare"
	VariantGeneral    Variant = "general"
)

// Variants returns every analyzer variant.
func Variants() []Variant {
	return []Variant{
		VariantFood,
		VariantSupplement,
		VariantDrink,
		VariantLab,
		VariantMedication,
		VariantSkincare,
		VariantGeneral,
	}
}

// Common holds the fields every analyzer returns.
type Common struct {
	Summary             string   `json:"summary"`
	HealthScore         Float    `json:"health_score"`
	AllergyWarnings     []string `json:"allergy_warnings"`
	InteractionWarnings []string `json:"interaction_warnings"`
	Benefits            []string `json:"benefits"`
	Concerns            []string `json:"concerns"`
	Recommendations     []string `json:"recommendations"`
}

// Measurement is one observed value with optional reference range.
type Measurement struct {
	Key          string `json:"key"`
	Title        string `json:"title"`
	Value        string `json:"value"`
	ValueNumeric Float  `json:"value_numeric"`
	Unit         string `json:"unit"`
	Status       string `json:"status"`
	Severity     Float  `json:"severity"`
	RangeMin     Float  `json:"range_min"`
	RangeMax     Float  `json:"range_max"`
	RangeText    string `json:"range_text"`
	Explanation  string `json:"explanation"`
	ActionTip    string `json:"action_tip"`
}

// Ingredient is a labelled product component.
type Ingredient struct {
	Name              string `json:"name"`
	Amount            string `json:"amount"`
	AmountNumeric     Float  `json:"amount_numeric"`
	Unit              string `json:"unit"`
	DailyValuePercent Float  `json:"daily_value_percent"`
	Status            string `json:"status"`
	Note              string `json:"note"`
}

// Details is the variant-specific part of a Result. The set of
// implementations is closed; each type reports its own Variant.
type Details interface {
	Variant() Variant
}

type FoodItem struct {
	Name    string `json:"name"`
	Portion string `json:"portion"`
}

type FoodDetails struct {
	Items     []FoodItem    `json:"items"`
	Calories  Float         `json:"calories"`
	Nutrients []Measurement `json:"nutrients"`
}

type SupplementDetails struct {
	ProductName string       `json:"product_name"`
	Ingredients []Ingredient `json:"ingredients"`
}

type DrinkDetails struct {
	Name           string `json:"name"`
	VolumeML       Float  `json:"volume_ml"`
	Calories       Float  `json:"calories"`
	SugarG         Float  `json:"sugar_g"`
	CaffeineMG     Float  `json:"caffeine_mg"`
	AlcoholPercent Float  `json:"alcohol_percent"`
}

type LabDetails struct {
	LabName     string        `json:"lab_name"`
	CollectedAt string        `json:"collected_at"`
	Markers     []Measurement `json:"markers"`
}

type MedicationDetails struct {
	Name              string   `json:"name"`
	ActiveIngredients []string `json:"active_ingredients"`
	Dosage            string   `json:"dosage"`
	Frequency         string   `json:"frequency"`
	SideEffects       []string `json:"side_effects"`
	Contraindications []string `json:"contraindications"`
}

type SkincareDetails struct {
	ProductName string       `json:"product_name"`
	Ingredients []Ingredient `json:"ingredients"`
	Irritants   []string     `json:"irritants"`
	SuitableFor string       `json:"suitable_for"`
}

type GeneralDetails struct {
	Observations []Measurement `json:"observations"`
	Diagnoses    []string      `json:"diagnoses"`
}

func (*FoodDetails) Variant() Variant       { return VariantFood }
func (*SupplementDetails) Variant() Variant { return VariantSupplement }
func (*DrinkDetails) Variant() Variant      { return VariantDrink }
func (*LabDetails) Variant() Variant        { return VariantLab }
func (*MedicationDetails) Variant() Variant { return VariantMedication }
func (*SkincareDetails) Variant() Variant   { return VariantSkincare }
func (*GeneralDetails) Variant() Variant    { return VariantGeneral }

// Result is the Analyzer port output. Details is never nil and always
// matches Variant. RawData keeps the undecoded response for audit.
type Result struct {
	Variant Variant `json:"variant"`
	Common
	Details Details         `json:"details"`
	RawData json.RawMessage `json:"raw_data,omitempty"`
}

// NewDetails returns an empty Details value for v, falling back to general.
func NewDetails(v Variant) Details {
	switch v {
	case VariantFood:
		return &FoodDetails{}
	case VariantSupplement:
		return &SupplementDetails{}
	case VariantDrink:
		return &DrinkDetails{}
	case VariantLab:
		return &LabDetails{}
	case VariantMedication:
		return &MedicationDetails{}
	case VariantSkincare:
		return &SkincareDetails{}
	default:
		return &GeneralDetails{}
	}
}

// DecodeResult decodes an analyzer response into the typed Result for v.
// Unknown fields are ignored and a missing details object yields empty details.
func DecodeResult(v Variant, data []byte) (*Result, error) {
	var envelope struct {
		Common
		Details json.RawMessage `json:"details"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s analysis: %w", v, err)
	}

	details := NewDetails(v)
	if len(envelope.Details) > 0 && string(envelope.Details) != "null" {
		if err := json.Unmarshal(envelope.Details, details); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", v, err)
		}
	}

	return &Result{
		Variant: details.Variant(),
		Common:  envelope.Common,
		Details: details,
		RawData: json.RawMessage(data),
	}, nil
}
