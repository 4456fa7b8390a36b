package prompts

const classifySpec = `Respond with a JSON object matching this exact structure:

{
  "document_type": "<type>",
  "body_system": "<system>",
  "confidence": 0.0,
  "detected_elements": ["<element>"],
  "reasoning": "<explanation>",
  "suggested_analysis": ["<analysis>"]
}

Field constraints:
- document_type: one of food_photo, supplement, drink, lab_pdf,
  lab_handwritten, medication, clinical_report, skincare_product, other.
- body_system: one of eyes, digestive, skin, blood, cardiovascular, hormones,
  nutrition, respiratory, musculoskeletal, neurological, renal, hepatic,
  immune, metabolic, general.
- confidence: number between 0 and 1.
- detected_elements: visible elements that support the decision.
- reasoning: one or two sentences.
- suggested_analysis: follow-up analyses worth running, may be empty.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Use "other" and "general" when unsure rather than inventing values`

const commonAnalysisFields = `  "summary": "<one paragraph>",
  "health_score": 0,
  "allergy_warnings": ["<warning>"],
  "interaction_warnings": ["<warning>"],
  "benefits": ["<benefit>"],
  "concerns": ["<concern>"],
  "recommendations": ["<recommendation>"],`

const measurementShape = `{
      "key": "<snake_case_metric_key>",
      "title": "<display name>",
      "value": "<value as printed>",
      "value_numeric": 0.0,
      "unit": "<unit>",
      "status": "good|attention|concern|info",
      "severity": 1,
      "range_min": 0.0,
      "range_max": 0.0,
      "range_text": "<reference range as printed>",
      "explanation": "<short explanation>",
      "action_tip": "<short tip>"
    }`

const ingredientShape = `{
      "name": "<ingredient>",
      "amount": "<amount as printed>",
      "amount_numeric": 0.0,
      "unit": "<unit>",
      "daily_value_percent": 0.0,
      "status": "good|attention|concern|info",
      "note": "<short note>"
    }`

const commonAnalysisConstraints = `
Field constraints:
- health_score: 0 to 100 where higher is healthier, or null when not
  meaningful for this artifact.
- Warning, benefit and concern lists hold short phrases, may be empty.
- status: good, attention, concern or info. severity: 1 to 5 or null.
- Numeric fields are null when unknown. Never invent values.
- Write all prose in the user's language.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Use the user's allergies and profile when judging warnings`

const analyzeFoodSpec = `Respond with a JSON object matching this exact structure:

{
` + commonAnalysisFields + `
  "details": {
    "items": [{"name": "<food>", "portion": "<portion>"}],
    "calories": 0.0,
    "nutrients": [` + measurementShape + `]
  }
}
` + commonAnalysisConstraints

const analyzeSupplementSpec = `Respond with a JSON object matching this exact structure:

{
` + commonAnalysisFields + `
  "details": {
    "product_name": "<name>",
    "ingredients": [` + ingredientShape + `]
  }
}
` + commonAnalysisConstraints

const analyzeDrinkSpec = `Respond with a JSON object matching this exact structure:

{
` + commonAnalysisFields + `
  "details": {
    "name": "<drink>",
    "volume_ml": 0.0,
    "calories": 0.0,
    "sugar_g": 0.0,
    "caffeine_mg": 0.0,
    "alcohol_percent": 0.0
  }
}
` + commonAnalysisConstraints

const analyzeLabSpec = `Respond with a JSON object matching this exact structure:

{
` + commonAnalysisFields + `
  "details": {
    "lab_name": "<laboratory>",
    "collected_at": "YYYY-MM-DD",
    "markers": [` + measurementShape + `]
  }
}
` + commonAnalysisConstraints + `
- Use stable snake_case keys for markers (vitamin_d_level, ldl_cholesterol)
  so that repeated tests of the same marker share a key
- collected_at is an empty string when no date is printed`

const analyzeMedicationSpec = `Respond with a JSON object matching this exact structure:

{
` + commonAnalysisFields + `
  "details": {
    "name": "<medication>",
    "active_ingredients": ["<ingredient>"],
    "dosage": "<dosage>",
    "frequency": "<frequency>",
    "side_effects": ["<effect>"],
    "contraindications": ["<contraindication>"]
  }
}
` + commonAnalysisConstraints

const analyzeSkincareSpec = `Respond with a JSON object matching this exact structure:

{
` + commonAnalysisFields + `
  "details": {
    "product_name": "<name>",
    "ingredients": [` + ingredientShape + `],
    "irritants": ["<ingredient>"],
    "suitable_for": "<skin types>"
  }
}
` + commonAnalysisConstraints

const analyzeGeneralSpec = `Respond with a JSON object matching this exact structure:

{
` + commonAnalysisFields + `
  "details": {
    "observations": [` + measurementShape + `],
    "diagnoses": ["<diagnosis>"]
  }
}
` + commonAnalysisConstraints

const correlateSpec = `Respond with a JSON object matching this exact structure:

{
  "correlations": [
    {
      "title": "<short title>",
      "primary_system": "<body system>",
      "related_systems": ["<body system>"],
      "explanation": "<why these findings are linked>",
      "action_tip": "<what the user can do>",
      "confidence": 0.0,
      "priority": "high|medium|low",
      "evidence_keys": ["<finding key>"]
    }
  ]
}

Field constraints:
- Body systems use the same values as the findings provided.
- related_systems: may be empty when the link stays within the primary system.
- confidence: number between 0 and 1.
- evidence_keys: finding keys from the input that support the link. The same link must name the same keys on every run.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Return an empty list when no link is supported
- Write prose in the user's language`

const recommendSpec = `Respond with a JSON object matching this exact structure:

{
  "recommendations": [
    {"title": "<short title>", "body": "<one or two sentences>", "priority": "high|medium|low"}
  ]
}

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- At most five recommendations
- Write prose in the user's language`

var specs = map[Stage]string{
	StageClassify:          classifySpec,
	StageAnalyzeFood:       analyzeFoodSpec,
	StageAnalyzeSupplement: analyzeSupplementSpec,
	StageAnalyzeDrink:      analyzeDrinkSpec,
	StageAnalyzeLab:        analyzeLabSpec,
	StageAnalyzeMedication: analyzeMedicationSpec,
	StageAnalyzeSkincare:   analyzeSkincareSpec,
	StageAnalyzeGeneral:    analyzeGeneralSpec,
	StageCorrelate:         correlateSpec,
	StageRecommend:         recommendSpec,
}

// Spec returns the hardcoded specification for a pipeline stage.
// Specifications define the expected output format and behavioral constraints.
// Returns ErrInvalidStage if the stage is not recognized.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
