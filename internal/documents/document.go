// Package documents persists uploaded health artifacts and their processing
// status. The pipeline is the only writer of status; every change is a
// compare-and-set against the status the caller expects.
package documents

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/internal/taxonomy"
)

// Status is a pipeline state.
type Status string

const (
	StatusPending     Status = "pending"
	StatusClassifying Status = "classifying"
	StatusAnalyzing   Status = "analyzing"
	StatusExtracting  Status = "extracting_findings"
	StatusDownstream  Status = "generating_downstream"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// CancelledPrefix marks the error message of a document whose run was
// interrupted before reaching a terminal status.
const CancelledPrefix = "cancelled: "

// Terminal reports whether s is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document is one uploaded artifact.
type Document struct {
	ID                       uuid.UUID              `json:"id"`
	UserID                   string                 `json:"user_id"`
	FileRef                  string                 `json:"file_ref"`
	FileName                 string                 `json:"file_name"`
	MimeType                 string                 `json:"mime_type"`
	SizeBytes                *int64                 `json:"size_bytes,omitempty"`
	PageCount                *int                   `json:"page_count,omitempty"`
	DocumentType             *taxonomy.DocumentType `json:"document_type,omitempty"`
	BodySystem               *taxonomy.BodySystem   `json:"body_system,omitempty"`
	ClassificationConfidence *float64               `json:"classification_confidence,omitempty"`
	ClassificationReasoning  *string                `json:"classification_reasoning,omitempty"`
	Status                   Status                 `json:"status"`
	ErrorMessage             *string                `json:"error_message,omitempty"`
	UploadedAt               time.Time              `json:"uploaded_at"`
	UpdatedAt                time.Time              `json:"updated_at"`
}

// Interrupted reports whether a previous run was cancelled mid-flight.
func (d *Document) Interrupted() bool {
	return !d.Status.Terminal() &&
		d.ErrorMessage != nil &&
		strings.HasPrefix(*d.ErrorMessage, CancelledPrefix)
}

// Retryable reports whether the document may be reset to pending.
func (d *Document) Retryable() bool {
	return d.Status == StatusFailed || d.Interrupted()
}

// CreateCommand registers a document whose file is already in blob storage.
type CreateCommand struct {
	UserID    string
	FileRef   string
	FileName  string
	MimeType  string
	SizeBytes *int64
	PageCount *int
}

// Classification is the outcome of the classify stage.
type Classification struct {
	DocumentType taxonomy.DocumentType
	BodySystem   taxonomy.BodySystem
	Confidence   float64
	Reasoning    string
}

// File describes a blob stored by Stash.
type File struct {
	Ref       string
	Name      string
	MimeType  string
	SizeBytes int64
	PageCount *int
}

// StashCommand carries raw upload bytes to be written to blob storage.
type StashCommand struct {
	UserID   string
	FileName string
	MimeType string
	Data     []byte
}
