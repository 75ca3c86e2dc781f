package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-verification-room/internal/domain"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStorageTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err with a stable public message. Only validation
// failures echo their details back to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	env := Envelope{}
	switch status {
	case http.StatusBadRequest:
		env.Error = "invalid request"
		env.Details = err.Error()
	case http.StatusNotFound:
		env.Error = "room not found"
	case http.StatusConflict:
		env.Error = "conflict"
	case http.StatusGatewayTimeout:
		env.Error = "storage did not respond in time, please retry"
	case http.StatusServiceUnavailable:
		env.Error = "storage unavailable"
	case http.StatusUnauthorized:
		env.Error = "unauthorized"
	case http.StatusForbidden:
		env.Error = "forbidden"
	default:
		env.Error = "internal server error"
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, env)
}
