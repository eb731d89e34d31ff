package apperr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", NotFound("task", 7), ErrNotFound},
		{"last container", &LastContainerError{Kind: "project"}, ErrLastContainer},
		{"corrupt", &CorruptDataError{Path: "x.json"}, ErrCorruptData},
		{"io", &IOError{Op: "read", Path: "x.json", Err: os.ErrPermission}, ErrIO},
		{"validation", Invalid("bad %s", "payload"), ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "task 7 not found", NotFound("task", 7).Error())
}

func TestIOErrorUnwraps(t *testing.T) {
	err := &IOError{Op: "write", Path: "a", Err: os.ErrPermission}
	assert.True(t, errors.Is(err, os.ErrPermission))
}

func TestCorruptDataErrorIncludesDiagnostics(t *testing.T) {
	err := &CorruptDataError{Path: "r.json", Diagnostics: []string{"tasks: missing", "projects: missing"}}
	assert.Contains(t, err.Error(), "tasks: missing; projects: missing")
}

type request struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestFromRules(t *testing.T) {
	req := request{Count: -1}
	err := FromRules("invalid request", validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required),
		validation.Field(&req.Count, validation.Min(0)),
	))
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Problems, "name")
	assert.Contains(t, ve.Problems, "count")
	assert.ErrorIs(t, err, ErrValidation)

	assert.NoError(t, FromRules("ok", nil))
}
