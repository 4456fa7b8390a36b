package pipeline

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/vitalis/internal/documents"
)

// Pipeline errors. Stage failures are recorded on the document and reported
// through Result; these are returned when a run cannot start or was cut short.
var (
	ErrCancelled       = errors.New("processing cancelled")
	ErrInvalidUpload   = errors.New("upload requires a user and a file reference")
	ErrNotRetryable    = documents.ErrNotRetryable
	ErrUnauthenticated = documents.ErrUnauthenticated
)

// MapHTTPStatus maps pipeline errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrCancelled) {
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, ErrInvalidUpload) {
		return http.StatusBadRequest
	}
	return documents.MapHTTPStatus(err)
}
