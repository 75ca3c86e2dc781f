package validate

import (
	"errors"
	"testing"

	"github.com/go-verification-room/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_Valid(t *testing.T) {
	req := domain.SubmitCandidateRequest{
		Name: "Ann", Email: "ann@x.com", Skills: "Go", Experience: "3",
		EmployerEmail: "e@x.com", RecruiterEmail: "r@x.com",
	}
	assert.NoError(t, Struct(req))
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	req := domain.SubmitCandidateRequest{
		Name: "Ann", Email: "ann@x.com", Skills: "Go", Experience: "3",
		EmployerEmail: "not-an-email", RecruiterEmail: "",
	}
	err := Struct(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Contains(t, err.Error(), "field 'employerEmail' failed 'email'")
	assert.Contains(t, err.Error(), "field 'recruiterEmail' failed 'required'")
}
