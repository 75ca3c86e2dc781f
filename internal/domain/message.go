package domain

import "time"

// Sender identifies the author of a message.
type Sender struct {
	Name  string `json:"name" dynamodbav:"name"`
	Email string `json:"email" dynamodbav:"email"`
	Role  Role   `json:"role" dynamodbav:"role"`
}

// SystemSender authors server-synthesized messages.
var SystemSender = Sender{Name: "System", Role: RoleSystem}

// Message is immutable once appended. Seq and ServerTimestamp are assigned by
// the store; both grow strictly inside a room, client clocks are never used.
type Message struct {
	RoomID            string    `json:"-" dynamodbav:"room_id"`
	Seq               int64     `json:"seq" dynamodbav:"seq"`
	Sender            Sender    `json:"sender" dynamodbav:"sender"`
	Body              string    `json:"message" dynamodbav:"body"`
	ServerTimestamp   time.Time `json:"timestamp" dynamodbav:"server_timestamp"`
	IsSystemGenerated bool      `json:"isSystem" dynamodbav:"is_system"`
}

// NextTimestamp returns the receipt time to store for a message appended
// after last. Clock steps backwards are absorbed so order and time agree.
func NextTimestamp(now, last time.Time) time.Time {
	if !now.After(last) {
		return last.Add(time.Microsecond)
	}
	return now
}
