package domain

import "time"

// Real-time event names. They are part of the wire contract with the web client.
const (
	EventJoinRoom    = "join-room"
	EventSendMessage = "send-message"
	EventTyping      = "typing"
	EventStopTyping  = "stop-typing"

	EventLoadMessages   = "load-messages"
	EventReceiveMessage = "receive-message"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventUserTyping     = "user-typing"
	EventUserStopTyping = "user-stop-typing"
	EventError          = "error"
)

// Event is one server-to-client notification.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// PresenceNotice is the payload of user-joined, user-left and the typing events.
type PresenceNotice struct {
	User      string     `json:"user"`
	Role      Role       `json:"role"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ErrorNotice is the payload of the error event.
type ErrorNotice struct {
	Event string `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// RoomCreated is published to the event bus after a room is created.
type RoomCreated struct {
	RoomID         string    `json:"room_id"`
	CandidateID    string    `json:"candidate_id"`
	CandidateName  string    `json:"candidate_name"`
	ChatLink       string    `json:"chat_link"`
	RecruiterEmail string    `json:"recruiter_email"`
	CreatedAt      time.Time `json:"created_at"`
}
