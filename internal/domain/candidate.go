package domain

import "time"

const CandidateStatusPending = "pending"

// Candidate is the person being verified. One candidate owns exactly one room.
type Candidate struct {
	CandidateID    string    `json:"candidateId" dynamodbav:"candidate_id"`
	Name           string    `json:"name" dynamodbav:"name"`
	Email          string    `json:"email" dynamodbav:"email"`
	Skills         string    `json:"skills" dynamodbav:"skills"`
	Experience     string    `json:"experience" dynamodbav:"experience"`
	EmployerEmail  string    `json:"employerEmail" dynamodbav:"employer_email"`
	RecruiterEmail string    `json:"createdBy" dynamodbav:"created_by"`
	RoomID         string    `json:"roomId" dynamodbav:"room_id"`
	Status         string    `json:"status" dynamodbav:"status"`
	CreatedAt      time.Time `json:"createdAt" dynamodbav:"created_at"`
}

// SubmitCandidateRequest is the payload of a verification submission.
type SubmitCandidateRequest struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Skills         string `json:"skills" validate:"required"`
	Experience     string `json:"experience" validate:"required"`
	EmployerEmail  string `json:"employerEmail" validate:"required,email"`
	RecruiterEmail string `json:"recruiterEmail" validate:"required,email"`
}
