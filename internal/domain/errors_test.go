package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"wrong kind", NewValidationError("mime_type", "text/plain", "not audio or video", ErrUnsupportedKind), MsgDropRejected},
		{"empty url", NewValidationError("url", "", "required", ErrEmptyURL), MsgEmptyURL},
		{"empty code", NewValidationError("code", "", "required", ErrEmptyCode), MsgEmptyCode},
		{"setup", NewPipelineError("build_graph", CategorySetup, "a.mp3", errors.New("boom")), MsgSetupFailed},
		{"playback", NewPipelineError("play", CategoryPlayback, "a.mp3", ErrPlaybackRejected), MsgPlayFailed},
		{"collaborator", NewCollaboratorError("telemetry", "record", 500, errors.New("down")), ""},
		{"plain", errors.New("whatever"), MsgSetupFailed},
		{"nothing loaded", fmt.Errorf("play: %w", ErrNoSourceLoaded), MsgNothingLoaded},
		{"custom validation", NewValidationError("size", 0, "file is empty", ErrEmptySource), "file is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestPipelineError_Unwrap(t *testing.T) {
	err := fmt.Errorf("load: %w", NewPipelineError("create_element", CategorySetup, "", ErrUnsupportedFormat))

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	var pe *PipelineError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "create_element", pe.Op)
	assert.Equal(t, CategorySetup, CategoryOf(err))
	assert.Contains(t, pe.Error(), "create_element")
}

func TestCollaboratorError(t *testing.T) {
	err := NewCollaboratorError("aiprocess", "transform", 0, ErrCollaboratorDisabled)
	assert.ErrorIs(t, err, ErrCollaboratorDisabled)
	assert.Equal(t, CategoryCollaborator, CategoryOf(err))
	assert.NotContains(t, err.Error(), "status")
}
