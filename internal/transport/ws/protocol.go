package ws

import (
	"encoding/json"
	"errors"

	"github.com/go-verification-room/internal/domain"
)

// Error codes carried by the error event.
const (
	codeNotFound   = "not_found"
	codeValidation = "validation"
	codeConflict   = "conflict"
	codeTimeout    = "timeout"
	codeNotJoined  = "not_joined"
	codeInternal   = "internal"
)

// inbound is a client frame. Data is decoded once the event name is known.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return codeNotFound
	case errors.Is(err, domain.ErrValidation):
		return codeValidation
	case errors.Is(err, domain.ErrConflict):
		return codeConflict
	case errors.Is(err, domain.ErrStorageTimeout):
		return codeTimeout
	case errors.Is(err, domain.ErrNotJoined):
		return codeNotJoined
	}
	return codeInternal
}

// errorEvent reports the failure of a client event. Internal failures are
// described generically.
func errorEvent(event string, err error) domain.Event {
	code := errorCode(err)
	msg := err.Error()
	switch code {
	case codeInternal:
		msg = "internal error"
	case codeNotFound:
		msg = "room not found"
	case codeTimeout:
		msg = "storage did not respond in time, please retry"
	}
	return domain.Event{
		Name: domain.EventError,
		Data: domain.ErrorNotice{Event: event, Code: code, Error: msg},
	}
}
