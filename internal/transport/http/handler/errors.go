package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/medmarket-api/internal/domain"
)

// httpError maps a service error to its HTTP status. Errors outside the
// domain taxonomy are logged and reported as a generic 500.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	var throttled *domain.ThrottledError
	switch {
	case errors.As(err, &throttled):
		w.Header().Set("Retry-After", strconv.Itoa(throttled.Seconds()))
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrThrottled):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrBadRequest),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrOTPMismatch),
		errors.Is(err, domain.ErrOTPExpired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrDeliveryFailed):
		writeError(w, http.StatusBadGateway, "could not deliver verification code")
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
