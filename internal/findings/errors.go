package findings

import (
	"errors"
	"net/http"
)

// Domain errors for findings operations.
var (
	ErrNotFound = errors.New("finding not found")
	// ErrStorageConflict is a concurrent first insert for the same key.
	// It is resolved by re-reading and retrying.
	ErrStorageConflict = errors.New("concurrent write on finding key")
	// ErrStoreFailed means no finding of a non-empty batch could be stored.
	ErrStoreFailed     = errors.New("no findings could be stored")
	// ErrDuplicateKey is a finding key repeated within one StoreCommand.
	ErrDuplicateKey    = errors.New("finding key repeated in batch")
	ErrInvalidQuery    = errors.New("body_system and key are required")
	ErrUnauthenticated = errors.New("user identity required")
)

// MapHTTPStatus maps findings domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrStorageConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidQuery) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrUnauthenticated) {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
