package httpapi

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/authcore"
	"go.uber.org/zap"
)

// statusFor maps an engine error to an HTTP status. Failed credential, code
// and token checks are client errors (400); 401 is reserved for a missing or
// invalid bearer token.
func statusFor(err error) int {
	switch {
	case errors.Is(err, authcore.ErrInvalidAccessToken):
		return http.StatusUnauthorized
	case errors.Is(err, authcore.ErrSessionNotFound), errors.Is(err, authcore.ErrOTPNotFound):
		return http.StatusBadRequest
	}

	switch authcore.KindOf(err) {
	case authcore.KindValidation, authcore.KindUnauthorized:
		return http.StatusBadRequest
	case authcore.KindNotFound:
		return http.StatusNotFound
	case authcore.KindForbidden:
		return http.StatusForbidden
	case authcore.KindConflict:
		return http.StatusConflict
	case authcore.KindRateLimited:
		return http.StatusTooManyRequests
	case authcore.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	kind := authcore.KindOf(err)

	msg := authcore.ErrInternal.Msg
	var e *authcore.Error
	if kind != authcore.KindInternal && errors.As(err, &e) {
		msg = e.Msg
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: msg, Kind: kind.String()})
}

func (h *handler) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: authcore.KindValidation.String()})
}
