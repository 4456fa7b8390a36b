package analysis

import (
	"context"
	"strings"

	"github.com/JaimeStill/vitalis/internal/taxonomy"
)

// Input identifies the uploaded file a port works on.
type Input struct {
	FileRef  string `json:"file_ref"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

// Classification is the Classifier port output. Values are always members
// of the taxonomy and Confidence is within [0,1].
type Classification struct {
	DocumentType      taxonomy.DocumentType `json:"document_type"`
	BodySystem        taxonomy.BodySystem   `json:"body_system"`
	Confidence        float64               `json:"confidence"`
	DetectedElements  []string              `json:"detected_elements"`
	Reasoning         string                `json:"reasoning"`
	SuggestedAnalysis []string              `json:"suggested_analysis"`
}

// Classifier tags a file with a document type and body system.
type Classifier interface {
	Classify(ctx context.Context, in Input) (*Classification, error)
}

// RawClassification is the classifier's response before coercion.
type RawClassification struct {
	DocumentType      string   `json:"document_type"`
	BodySystem        string   `json:"body_system"`
	Confidence        Float    `json:"confidence"`
	DetectedElements  []string `json:"detected_elements"`
	Reasoning         string   `json:"reasoning"`
	SuggestedAnalysis []string `json:"suggested_analysis"`
}

// Normalize coerces unknown types to other and general and clamps the
// confidence. A percentage (1 < c <= 100) is rescaled first.
func (r RawClassification) Normalize() Classification {
	conf := r.Confidence.Value
	if conf > 1 && conf <= 100 {
		conf /= 100
	}

	return Classification{
		DocumentType:      taxonomy.ParseDocumentType(r.DocumentType),
		BodySystem:        taxonomy.ParseBodySystem(r.BodySystem),
		Confidence:        taxonomy.Clamp01(conf),
		DetectedElements:  nonNil(r.DetectedElements),
		Reasoning:         strings.TrimSpace(r.Reasoning),
		SuggestedAnalysis: nonNil(r.SuggestedAnalysis),
	}
}

func nonNil(s []string) []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
