package controlplane

import (
	"errors"
	"net/http"

	"github.com/fentz26/taskdesk/internal/lifecycle"
)

// Sentinel errors for control plane operations.
var (
	ErrMissingActor = errors.New("missing or invalid X-Actor-ID header")
	ErrInvalidJSON  = errors.New("invalid json")
	ErrNotFound     = errors.New("resource not found")
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classify maps an error to its HTTP status and kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingActor):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, ErrInvalidJSON), errors.Is(err, lifecycle.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, lifecycle.ErrNotPermitted):
		return http.StatusForbidden, "not_permitted"
	case errors.Is(err, ErrNotFound), errors.Is(err, lifecycle.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, lifecycle.ErrOperational):
		return http.StatusServiceUnavailable, "operational"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}
