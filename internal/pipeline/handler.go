package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/internal/documents"
	"github.com/JaimeStill/vitalis/pkg/formatting"
	"github.com/JaimeStill/vitalis/pkg/handlers"
	"github.com/JaimeStill/vitalis/pkg/middleware"
	"github.com/JaimeStill/vitalis/pkg/routes"
)

// Stasher writes upload bytes to blob storage.
type Stasher interface {
	Stash(ctx context.Context, cmd documents.StashCommand) (*documents.File, error)
}

// Handler provides the upload and retry endpoints.
type Handler struct {
	sys           System
	files         Stasher
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler. Uploads larger than maxUploadSize are rejected.
func NewHandler(sys System, files Stasher, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		files:         files,
		logger:        logger.With("handler", "pipeline"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for pipeline endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/uploads", Handler: h.Upload},
			{Method: "POST", Pattern: "/documents/{id}/retry", Handler: h.Retry},
		},
	}
}

// Upload stores a multipart file and processes it synchronously.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			limit := formatting.FormatBytes(h.maxUploadSize, 1)
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge,
				fmt.Errorf("%w (%s)", documents.ErrFileTooLarge, limit))
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidFile)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidFile)
		return
	}

	stored, err := h.files.Stash(r.Context(), documents.StashCommand{
		UserID:   userID,
		FileName: header.Filename,
		MimeType: documents.DetectMimeType(header.Header.Get("Content-Type"), data),
		Data:     data,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, documents.MapHTTPStatus(err), err)
		return
	}

	result, err := h.sys.ProcessUpload(r.Context(), Upload{
		UserID:    userID,
		FileRef:   stored.Ref,
		FileName:  stored.Name,
		MimeType:  stored.MimeType,
		SizeBytes: &stored.SizeBytes,
		PageCount: stored.PageCount,
	})
	h.respond(w, result, err)
}

// Retry re-enters processing for a failed or interrupted document.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, ErrUnauthenticated)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidRequest)
		return
	}

	result, err := h.sys.Retry(r.Context(), userID, id)
	h.respond(w, result, err)
}

// respond writes a Result. A document that failed a stage is reported with
// 422 and its Result body.
func (h *Handler) respond(w http.ResponseWriter, result *Result, err error) {
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	handlers.RespondJSON(w, status, result)
}
