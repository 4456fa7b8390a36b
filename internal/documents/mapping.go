package documents

import (
	"net/url"

	"github.com/JaimeStill/vitalis/internal/taxonomy"
	"github.com/JaimeStill/vitalis/pkg/query"
	"github.com/JaimeStill/vitalis/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("user_id", "UserID").
	Project("file_ref", "FileRef").
	Project("file_name", "FileName").
	Project("mime_type", "MimeType").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("document_type", "DocumentType").
	Project("body_system", "BodySystem").
	Project("classification_confidence", "ClassificationConfidence").
	Project("classification_reasoning", "ClassificationReasoning").
	Project("status", "Status").
	Project("error_message", "ErrorMessage").
	Project("uploaded_at", "UploadedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UploadedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. FileName uses case-insensitive contains matching;
// the rest match exactly. UserID is always set by the handler from the caller.
type Filters struct {
	UserID       *string                `json:"-"`
	Status       *Status                `json:"status,omitempty"`
	FileName     *string                `json:"file_name,omitempty"`
	MimeType     *string                `json:"mime_type,omitempty"`
	DocumentType *taxonomy.DocumentType `json:"document_type,omitempty"`
	BodySystem   *taxonomy.BodySystem   `json:"body_system,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("UserID", f.UserID).
		WhereEquals("Status", f.Status).
		WhereContains("FileName", f.FileName).
		WhereEquals("MimeType", f.MimeType).
		WhereEquals("DocumentType", f.DocumentType).
		WhereEquals("BodySystem", f.BodySystem)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		st := Status(s)
		f.Status = &st
	}

	if fn := values.Get("file_name"); fn != "" {
		f.FileName = &fn
	}

	if mt := values.Get("mime_type"); mt != "" {
		f.MimeType = &mt
	}

	if dt := values.Get("document_type"); dt != "" {
		v := taxonomy.ParseDocumentType(dt)
		f.DocumentType = &v
	}

	if bs := values.Get("body_system"); bs != "" {
		v := taxonomy.ParseBodySystem(bs)
		f.BodySystem = &v
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.UserID,
		&d.FileRef,
		&d.FileName,
		&d.MimeType,
		&d.SizeBytes,
		&d.PageCount,
		&d.DocumentType,
		&d.BodySystem,
		&d.ClassificationConfidence,
		&d.ClassificationReasoning,
		&d.Status,
		&d.ErrorMessage,
		&d.UploadedAt,
		&d.UpdatedAt,
	)
	return d, err
}
