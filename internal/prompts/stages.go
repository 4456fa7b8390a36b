package prompts

import (
	"encoding/json"
	"slices"
)

// Stage represents a pipeline stage that a prompt override targets.
type Stage string

// Valid pipeline stages.
const (
	StageClassify          Stage = "classify"
	StageAnalyzeFood       Stage = "analyze_food"
	StageAnalyzeSupplement Stage = "analyze_supplement"
	StageAnalyzeDrink      Stage = "analyze_drink"
	StageAnalyzeLab        Stage = "analyze_lab"
	StageAnalyzeMedication Stage = "analyze_medication"
	StageAnalyzeSkincare   Stage = "analyze_skincare"
	StageAnalyzeGeneral    Stage = "analyze_general"
	StageCorrelate         Stage = "correlate"
	StageRecommend         Stage = "recommend"
)

var stages = []Stage{
	StageClassify,
	StageAnalyzeFood,
	StageAnalyzeSupplement,
	StageAnalyzeDrink,
	StageAnalyzeLab,
	StageAnalyzeMedication,
	StageAnalyzeSkincare,
	StageAnalyzeGeneral,
	StageCorrelate,
	StageRecommend,
}

// Stages returns the list of valid pipeline stages.
func Stages() []Stage {
	return stages
}

// UnmarshalJSON validates that the decoded string is a known stage value.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseStage(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStage validates a string as a known pipeline stage.
// Returns ErrInvalidStage if the value is not recognized.
func ParseStage(s string) (Stage, error) {
	v := Stage(s)
	if !slices.Contains(stages, v) {
		return "", ErrInvalidStage
	}
	return v, nil
}
