package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoom_RecruiterPreJoined(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := &Candidate{CandidateID: "c1", Name: "Ann", Email: "ann@x.com", EmployerEmail: "e@x.com", RecruiterEmail: "r@x.com"}

	r := NewRoom("room-1", c, now)

	require.NotNil(t, r.Participants.Recruiter.JoinedAt)
	assert.Equal(t, now, *r.Participants.Recruiter.JoinedAt)
	assert.Nil(t, r.Participants.Candidate.JoinedAt)
	assert.Nil(t, r.Participants.Employer.JoinedAt)
	assert.Equal(t, "r@x.com", r.Participants.Recruiter.Email)
	assert.Equal(t, "Ann", r.Participants.Candidate.Name)
	assert.Equal(t, RoomStatusActive, r.Status)
	assert.Equal(t, "c1", r.CandidateID)
	assert.Empty(t, r.Messages)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleRecruiter.Valid())
	assert.True(t, RoleCandidate.Valid())
	assert.True(t, RoleEmployer.Valid())
	assert.False(t, RoleSystem.Valid())
	assert.False(t, Role("admin").Valid())
}

func TestParticipants_Slot(t *testing.T) {
	p := Participants{Employer: Participant{Email: "e@x.com"}}
	require.NotNil(t, p.Slot(RoleEmployer))
	assert.Equal(t, "e@x.com", p.Slot(RoleEmployer).Email)
	assert.Nil(t, p.Slot(RoleSystem))
}

func TestJoinedText(t *testing.T) {
	assert.Equal(t, "Recruiter (recruiter) joined the chat", JoinedText("Recruiter", RoleRecruiter))
}

func TestNextTimestamp(t *testing.T) {
	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, last.Add(time.Second), NextTimestamp(last.Add(time.Second), last))
	assert.Equal(t, last.Add(time.Microsecond), NextTimestamp(last, last))
	assert.Equal(t, last.Add(time.Microsecond), NextTimestamp(last.Add(-time.Hour), last))
}

func TestChatLink(t *testing.T) {
	assert.Equal(t, "http://localhost:5173/chat/abc", ChatLink("http://localhost:5173/", "abc"))
	assert.Equal(t, "https://app.io/chat/abc", ChatLink("https://app.io", "abc"))
}
