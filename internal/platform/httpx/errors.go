package httpx

import (
	"errors"
	"net/http"

	"github.com/pricedesk/pricedesk/internal/shared"
)

// RespondError maps domain errors to HTTP responses. Denials stay
// generic and store failures never leak storage detail to the client.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "you don't have permission")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicateRequest):
		Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, shared.ErrAlreadyResolved):
		Problem(w, http.StatusConflict, "Already Resolved", err.Error())
	case errors.Is(err, shared.ErrAlreadyReverted):
		Problem(w, http.StatusConflict, "Already Reverted", err.Error())
	case errors.Is(err, shared.ErrNotRevertible):
		Problem(w, http.StatusUnprocessableEntity, "Not Revertible", err.Error())
	case errors.Is(err, shared.ErrStoreUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
