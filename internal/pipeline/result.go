package pipeline

import (
	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/internal/documents"
	"github.com/JaimeStill/vitalis/internal/engagement"
	"github.com/JaimeStill/vitalis/internal/taxonomy"
)

// Upload describes a file already written to blob storage. DocumentID
// re-enters processing for an existing document instead of creating one.
type Upload struct {
	UserID     string
	FileRef    string
	FileName   string
	MimeType   string
	SizeBytes  *int64
	PageCount  *int
	DocumentID *uuid.UUID
}

// Result reports the outcome of one run.
type Result struct {
	Success           bool                   `json:"success"`
	DocumentID        uuid.UUID              `json:"document_id"`
	Status            documents.Status       `json:"status"`
	DocumentType      *taxonomy.DocumentType `json:"document_type,omitempty"`
	BodySystem        *taxonomy.BodySystem   `json:"body_system,omitempty"`
	FindingsExtracted *int                   `json:"findings_extracted,omitempty"`
	EvolutionDetected *bool                  `json:"evolution_detected,omitempty"`
	Correlations      *int                   `json:"correlations,omitempty"`
	SideEffects       []engagement.Outcome   `json:"side_effects,omitempty"`
	Error             string                 `json:"error,omitempty"`
}
