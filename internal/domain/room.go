package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is one of the three fixed participant slots of a room.
type Role string

const (
	RoleRecruiter Role = "recruiter"
	RoleCandidate Role = "candidate"
	RoleEmployer  Role = "employer"

	// RoleSystem marks server-synthesized messages. It is never a slot.
	RoleSystem Role = "system"
)

const RoomStatusActive = "active"

// Valid reports whether r names a participant slot.
func (r Role) Valid() bool {
	switch r {
	case RoleRecruiter, RoleCandidate, RoleEmployer:
		return true
	}
	return false
}

// Participant is the occupant description of a role slot.
// JoinedAt moves from nil to a timestamp once, on the first successful join.
type Participant struct {
	Email    string     `json:"email" dynamodbav:"email"`
	Name     string     `json:"name" dynamodbav:"name"`
	JoinedAt *time.Time `json:"joinedAt" dynamodbav:"joined_at,omitempty"`
}

// Participants holds the three structural slots of a room.
type Participants struct {
	Recruiter Participant `json:"recruiter" dynamodbav:"recruiter"`
	Candidate Participant `json:"candidate" dynamodbav:"candidate"`
	Employer  Participant `json:"employer" dynamodbav:"employer"`
}

// Slot returns the participant stored under role, or nil for an unknown role.
func (p *Participants) Slot(role Role) *Participant {
	switch role {
	case RoleRecruiter:
		return &p.Recruiter
	case RoleCandidate:
		return &p.Candidate
	case RoleEmployer:
		return &p.Employer
	}
	return nil
}

// Room is the verification room aggregate. Messages are stored separately
// and attached on reads.
type Room struct {
	RoomID        string       `json:"roomId" dynamodbav:"room_id"`
	CandidateID   string       `json:"candidateId" dynamodbav:"candidate_id"`
	Participants  Participants `json:"participants" dynamodbav:"participants"`
	Status        string       `json:"status" dynamodbav:"status"`
	MessageCount  int64        `json:"messageCount" dynamodbav:"message_count"`
	LastMessageAt time.Time    `json:"-" dynamodbav:"last_message_at"`
	CreatedAt     time.Time    `json:"createdAt" dynamodbav:"created_at"`
	Messages      []Message    `json:"messages" dynamodbav:"-"`
	Candidate     *Candidate   `json:"candidate,omitempty" dynamodbav:"-"`
}

// NewRoom builds the room for a freshly submitted candidate. The recruiter
// initiated the request, so its slot is pre-joined.
func NewRoom(roomID string, c *Candidate, now time.Time) *Room {
	joined := now
	return &Room{
		RoomID:      roomID,
		CandidateID: c.CandidateID,
		Participants: Participants{
			Recruiter: Participant{Email: c.RecruiterEmail, Name: "Recruiter", JoinedAt: &joined},
			Candidate: Participant{Email: c.Email, Name: c.Name},
			Employer:  Participant{Email: c.EmployerEmail, Name: "Employer"},
		},
		Status:    RoomStatusActive,
		CreatedAt: now,
		Messages:  []Message{},
	}
}

// JoinedText is the body of the system message appended on every join.
func JoinedText(name string, role Role) string {
	return fmt.Sprintf("%s (%s) joined the chat", name, role)
}

// ChatLink is the externally visible address of a room in the web client.
func ChatLink(clientURL, roomID string) string {
	return strings.TrimRight(clientURL, "/") + "/chat/" + roomID
}
