// Package taxonomy defines the closed vocabularies shared across the ingestion
// pipeline: document types, body systems, finding statuses, and evolution trends.
// External collaborators return free text; every value entering the system is
// coerced through the Parse functions here.
package taxonomy

import (
	"slices"
	"strings"
)

// DocumentType classifies an uploaded artifact.
type DocumentType string

const (
	DocumentFoodPhoto       DocumentType = "food_photo"
	DocumentSupplement      DocumentType = "supplement"
	DocumentDrink           DocumentType = "drink"
	DocumentLabPDF          DocumentType = "lab_pdf"
	DocumentLabHandwritten  DocumentType = "lab_handwritten"
	DocumentMedication      DocumentType = "medication"
	DocumentClinicalReport  DocumentType = "clinical_report"
	DocumentSkincareProduct DocumentType = "skincare_product"
	DocumentOther           DocumentType = "other"
)

var documentTypes = []DocumentType{
	DocumentFoodPhoto,
	DocumentSupplement,
	DocumentDrink,
	DocumentLabPDF,
	DocumentLabHandwritten,
	DocumentMedication,
	DocumentClinicalReport,
	DocumentSkincareProduct,
	DocumentOther,
}

// DocumentTypes returns every known document type.
func DocumentTypes() []DocumentType {
	return documentTypes
}

// ParseDocumentType normalizes s and returns DocumentOther for unknown values.
func ParseDocumentType(s string) DocumentType {
	v := DocumentType(normalize(s))
	if slices.Contains(documentTypes, v) {
		return v
	}
	return DocumentOther
}

// IsLab reports whether the document carries laboratory results.
func (d DocumentType) IsLab() bool {
	return d == DocumentLabPDF || d == DocumentLabHandwritten
}

// BodySystem is a coarse physiological grouping for findings and correlations.
type BodySystem string

const (
	SystemEyes            BodySystem = "eyes"
	SystemDigestive       BodySystem = "digestive"
	SystemSkin            BodySystem = "skin"
	SystemBlood           BodySystem = "blood"
	SystemCardiovascular  BodySystem = "cardiovascular"
	SystemHormones        BodySystem = "hormones"
	SystemNutrition       BodySystem = "nutrition"
	SystemRespiratory     BodySystem = "respiratory"
	SystemMusculoskeletal BodySystem = "musculoskeletal"
	SystemNeurological    BodySystem = "neurological"
	SystemRenal           BodySystem = "renal"
	SystemHepatic         BodySystem = "hepatic"
	SystemImmune          BodySystem = "immune"
	SystemMetabolic       BodySystem = "metabolic"
	SystemGeneral         BodySystem = "general"
)

var bodySystems = []BodySystem{
	SystemEyes,
	SystemDigestive,
	SystemSkin,
	SystemBlood,
	SystemCardiovascular,
	SystemHormones,
	SystemNutrition,
	SystemRespiratory,
	SystemMusculoskeletal,
	SystemNeurological,
	SystemRenal,
	SystemHepatic,
	SystemImmune,
	SystemMetabolic,
	SystemGeneral,
}

// BodySystems returns every known body system.
func BodySystems() []BodySystem {
	return bodySystems
}

// ParseBodySystem normalizes s and returns SystemGeneral for unknown values.
func ParseBodySystem(s string) BodySystem {
	v := BodySystem(normalize(s))
	if slices.Contains(bodySystems, v) {
		return v
	}
	return SystemGeneral
}

// Status is the analyzer's assessment of a single finding.
type Status string

const (
	StatusGood      Status = "good"
	StatusAttention Status = "attention"
	StatusConcern   Status = "concern"
	StatusInfo      Status = "info"
)

// ParseStatus returns StatusInfo for anything outside the four members.
func ParseStatus(s string) Status {
	switch v := Status(normalize(s)); v {
	case StatusGood, StatusAttention, StatusConcern, StatusInfo:
		return v
	default:
		return StatusInfo
	}
}

// Rank orders statuses by severity for roll-ups: concern > attention > good > info.
func (s Status) Rank() int {
	switch s {
	case StatusConcern:
		return 3
	case StatusAttention:
		return 2
	case StatusGood:
		return 1
	default:
		return 0
	}
}

// Worst returns the most severe of the given statuses, or StatusInfo when empty.
func Worst(statuses ...Status) Status {
	worst := StatusInfo
	for _, s := range statuses {
		if s.Rank() > worst.Rank() {
			worst = s
		}
	}
	return worst
}

// Trend is the direction of a finding relative to its predecessor.
type Trend string

const (
	TrendImproved Trend = "improved"
	TrendStable   Trend = "stable"
	TrendDeclined Trend = "declined"
)

// Priority ranks correlations.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority returns PriorityMedium for unknown values.
func ParsePriority(s string) Priority {
	switch v := Priority(normalize(s)); v {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return v
	default:
		return PriorityMedium
	}
}

// Clamp01 bounds a confidence score to [0,1].
func Clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
