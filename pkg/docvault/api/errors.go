package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/freeplm/docvault/pkg/docvault"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, docvault.ErrDocumentNotFound),
		errors.Is(err, docvault.ErrRevisionNotFound):
		return http.StatusNotFound
	case errors.Is(err, docvault.ErrAlreadyCheckedOut),
		errors.Is(err, docvault.ErrNotCheckedOut):
		return http.StatusConflict
	case errors.Is(err, docvault.ErrNotLockHolder):
		return http.StatusForbidden
	case errors.Is(err, docvault.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a JSON error response with the mapped status code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, statusForError(err))
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}
