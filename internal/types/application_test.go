package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStatus_IsTerminal(t *testing.T) {
	for _, s := range AllStatuses {
		want := s == StatusHired || s == StatusRejected
		assert.Equal(t, want, s.IsTerminal(), "status %s", s)
	}
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusUnderReview.Valid())
	assert.False(t, Status("archived").Valid())
	assert.False(t, Status("").Valid())
}

func TestNewApplication_Validate(t *testing.T) {
	valid := NewApplication{
		CandidateID:    uuid.New(),
		CandidateName:  "Ada Lovelace",
		CandidateEmail: "ada@example.com",
		JobID:          uuid.New(),
	}

	tests := []struct {
		name    string
		mutate  func(a *NewApplication)
		wantErr bool
	}{
		{name: "valid", mutate: func(*NewApplication) {}},
		{name: "missing name", mutate: func(a *NewApplication) { a.CandidateName = "" }, wantErr: true},
		{name: "bad email", mutate: func(a *NewApplication) { a.CandidateEmail = "not-an-email" }, wantErr: true},
		{name: "missing job", mutate: func(a *NewApplication) { a.JobID = uuid.Nil }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.mutate(&a)
			err := a.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
