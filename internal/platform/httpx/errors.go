package httpx

import (
	"errors"
	"net/http"

	"github.com/mandi-erp/mandi-erp/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		// includes shared.ErrConsistency; internals are not leaked to callers
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
