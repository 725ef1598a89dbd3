package httpx

import (
	"errors"
	"net/http"

	"github.com/examforge/examforge/internal/shared"
)

// ErrValidation marks request payloads that failed validation.
var ErrValidation = errors.New("validation failed")

// RespondError maps domain errors to HTTP responses using RFC7807.
// Registration and authentication failures carry their user-facing message;
// store failures are reported without internal detail.
func RespondError(w http.ResponseWriter, err error) {
	var regErr *shared.RegistrationError
	var authErr *shared.AuthenticationError
	switch {
	case errors.As(err, &regErr):
		Problem(w, http.StatusBadRequest, "Registration Failed", regErr.Error())
	case errors.As(err, &authErr):
		status := http.StatusUnauthorized
		if authErr.Cause == shared.AuthRateLimited {
			status = http.StatusTooManyRequests
		}
		Problem(w, status, "Authentication Failed", authErr.Error())
	case errors.Is(err, shared.ErrNoSession):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
