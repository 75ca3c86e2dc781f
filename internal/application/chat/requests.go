package chat

import "github.com/go-verification-room/internal/domain"

// JoinRequest is the payload of join-room.
type JoinRequest struct {
	RoomID string        `json:"roomId"`
	User   domain.Sender `json:"user"`
}

// SendRequest is the payload of send-message. The sender and any client
// timestamp are ignored: the session decides who speaks and the server
// decides when.
type SendRequest struct {
	RoomID  string        `json:"roomId"`
	Message string        `json:"message"`
	Sender  domain.Sender `json:"sender"`
}

// TypingRequest is the payload of typing and stop-typing.
type TypingRequest struct {
	RoomID string        `json:"roomId"`
	User   domain.Sender `json:"user"`
}
