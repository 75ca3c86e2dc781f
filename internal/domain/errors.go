package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes or protocol
// error codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")

	// ErrStorageTimeout means a bounded persistence call exceeded its budget.
	// The underlying write may still complete later; callers must retry the
	// whole operation instead of assuming partial success.
	ErrStorageTimeout = errors.New("storage timeout")

	// ErrUnavailable means the backing store cannot be reached at all.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotJoined is returned when a connection acts on a room it has not joined.
	ErrNotJoined = errors.New("not joined to room")

	// ErrNotificationFailure is only ever logged by the dispatcher.
	ErrNotificationFailure = errors.New("notification failed")
)
