package documents

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/vitalis/pkg/handlers"
	"github.com/JaimeStill/vitalis/pkg/middleware"
	"github.com/JaimeStill/vitalis/pkg/pagination"
	"github.com/JaimeStill/vitalis/pkg/routes"
)

// Handler provides HTTP endpoints for document operations. Every endpoint is
// scoped to the calling user; documents of other users read as not found.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "documents"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for document endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/file", Handler: h.File},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
		},
	}
}

// List pages through the caller's documents filtered by query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	filters := FiltersFromQuery(r.URL.Query())
	filters.UserID = &userID
	h.respondPage(w, r, pagination.PageRequestFromQuery(r.URL.Query(), h.pagination), filters)
}

// Search is List with the page and filters taken from a JSON body.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}
	req.PageRequest.Normalize(h.pagination)
	req.Filters.UserID = &userID
	h.respondPage(w, r, req.PageRequest, req.Filters)
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	if doc, ok := h.owned(w, r); ok {
		handlers.RespondJSON(w, http.StatusOK, doc)
	}
}

// File streams the stored artifact inline with its recorded content type.
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.owned(w, r)
	if !ok {
		return
	}

	rc, _, err := h.sys.Open(r.Context(), doc.ID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.FileName}))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("stream document file", "id", doc.ID, "error", err)
	}
}

func (h *Handler) respondPage(w http.ResponseWriter, r *http.Request, page pagination.PageRequest, filters Filters) {
	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, ErrUnauthenticated)
	}
	return userID, ok
}

// owned loads the document named by the path and checks it belongs to the
// caller. It writes the error response itself and reports false on failure.
func (h *Handler) owned(w http.ResponseWriter, r *http.Request) (*Document, bool) {
	userID, ok := h.caller(w, r)
	if !ok {
		return nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return nil, false
	}

	doc, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}
	if doc.UserID != userID {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrNotFound)
		return nil, false
	}

	return doc, true
}

// DetectMimeType prefers the client-declared type and sniffs the content
// when none or a generic one was sent.
func DetectMimeType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(data)
}
