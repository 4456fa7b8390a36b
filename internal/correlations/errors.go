package correlations

import (
	"errors"
	"net/http"
)

// Domain errors for correlation operations.
var (
	ErrNotFound        = errors.New("correlation not found")
	ErrDetectionFailed = errors.New("correlation detection failed")
	ErrInvalidRules    = errors.New("invalid correlation rules")
	ErrUnauthenticated = errors.New("user identity required")
	ErrInvalidRequest  = errors.New("invalid request")
)

// MapHTTPStatus maps correlation domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrUnauthenticated) {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
