package domain

import (
	"errors"
	"fmt"
)

// Common errors that pipeline components can return.
var (
	// ErrObjectURLOutstanding is returned when acquiring a handle while another one is still live.
	ErrObjectURLOutstanding = errors.New("object URL already outstanding")

	// ErrUnknownObjectURL is returned when opening a handle that was never issued or was released.
	ErrUnknownObjectURL = errors.New("unknown object URL")

	// ErrSourceAlreadyBound is returned when a second audio source node is bound to the same element.
	ErrSourceAlreadyBound = errors.New("element already bound to an audio source")

	// ErrGraphClosed is returned when using an audio graph after Close.
	ErrGraphClosed = errors.New("audio graph closed")

	// ErrElementClosed is returned when using a media element after Close.
	ErrElementClosed = errors.New("media element closed")

	// ErrNoSourceLoaded is returned when a playback command arrives with nothing loaded.
	ErrNoSourceLoaded = errors.New("no source loaded")

	// ErrInvalidTransition is returned when a trigger is not accepted in the current state.
	ErrInvalidTransition = errors.New("invalid playback transition")

	// ErrUnsupportedKind is returned for sources that are neither audio nor video.
	ErrUnsupportedKind = errors.New("unsupported media kind")

	// ErrUnsupportedFormat is returned when no decoder recognizes the encoded bytes.
	ErrUnsupportedFormat = errors.New("unsupported media format")

	// ErrEmptySource is returned for a source without data.
	ErrEmptySource = errors.New("empty media source")

	// ErrEmptyURL is returned when a remote load is requested without a URL.
	ErrEmptyURL = errors.New("empty URL")

	// ErrEmptyCode is returned when a live-coding load is requested without code.
	ErrEmptyCode = errors.New("empty live code")

	// ErrSourceTooLarge is returned when a fetched source exceeds the size limit.
	ErrSourceTooLarge = errors.New("media source too large")

	// ErrPlaybackRejected is returned when the output device refuses to start playback.
	ErrPlaybackRejected = errors.New("playback rejected")

	// ErrPipelineClosed is returned when using the pipeline after Shutdown.
	ErrPipelineClosed = errors.New("pipeline shut down")

	// ErrCollaboratorDisabled is returned by a collaborator that has no API key configured.
	ErrCollaboratorDisabled = errors.New("collaborator disabled")
)

// User-visible notice texts.
const (
	MsgDropRejected  = "Please drop an audio or video file (MP3, WAV, MP4, etc.)"
	MsgElementFailed = "Error loading file. Please ensure it's a valid audio or video file."
	MsgSetupFailed   = "Failed to load audio. Please try another file."
	MsgPlayFailed    = "Unable to play audio. Please check your file and try again."
	MsgURLFailed     = "Failed to load audio from URL. Please check the link."
	MsgEmptyURL      = "Please enter an audio URL."
	MsgEmptyCode     = "Please enter some live code."
	MsgNothingLoaded = "Load an audio or video file first."
)

// ErrorCategory classifies a pipeline failure for reporting.
type ErrorCategory int

const (
	// CategoryValidation is bad user input. State is unchanged.
	CategoryValidation ErrorCategory = iota
	// CategorySetup is a resource construction failure. The pipeline reverts to Idle.
	CategorySetup
	// CategoryPlayback is a play or element failure. The element moves to Errored.
	CategoryPlayback
	// CategoryCollaborator is a remote collaborator failure. Logged only.
	CategoryCollaborator
)

// String returns the category name.
func (c ErrorCategory) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategorySetup:
		return "setup"
	case CategoryPlayback:
		return "playback"
	case CategoryCollaborator:
		return "collaborator"
	default:
		return "unknown"
	}
}

// ValidationError represents rejected user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   any    // Value that failed validation
	Message string // Error message
	Err     error  // Sentinel, if any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     err,
	}
}

// PipelineError represents a failure inside the audio pipeline.
// This wraps adapter errors with the step that failed.
type PipelineError struct {
	Op       string        // Step that failed (e.g., "acquire_url", "create_element", "build_graph", "play")
	Category ErrorCategory // Setup or playback
	Source   string        // Source name (if applicable)
	Err      error         // Underlying error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("pipeline %s failed for '%s': %v", e.Op, e.Source, e.Err)
	}
	return fmt.Sprintf("pipeline %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError.
func NewPipelineError(op string, category ErrorCategory, source string, err error) *PipelineError {
	return &PipelineError{
		Op:       op,
		Category: category,
		Source:   source,
		Err:      err,
	}
}

// CollaboratorError represents a failed call to a remote collaborator.
type CollaboratorError struct {
	Service    string // Collaborator name (e.g., "telemetry", "aiprocess", "livecode")
	Op         string // Operation that failed
	StatusCode int    // HTTP status, zero when the request never completed
	Err        error  // Underlying error
}

// Error implements the error interface.
func (e *CollaboratorError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("collaborator %s.%s failed: status %d: %v", e.Service, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("collaborator %s.%s failed: %v", e.Service, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// NewCollaboratorError creates a new CollaboratorError.
func NewCollaboratorError(service, op string, status int, err error) *CollaboratorError {
	return &CollaboratorError{
		Service:    service,
		Op:         op,
		StatusCode: status,
		Err:        err,
	}
}

// CategoryOf classifies an error. Unclassified errors count as setup failures.
func CategoryOf(err error) ErrorCategory {
	var (
		ve *ValidationError
		pe *PipelineError
		ce *CollaboratorError
	)
	switch {
	case errors.As(err, &ve):
		return CategoryValidation
	case errors.As(err, &ce):
		return CategoryCollaborator
	case errors.As(err, &pe):
		return pe.Category
	default:
		return CategorySetup
	}
}

// UserMessage maps an error to the single text shown to the user.
// Collaborator errors are never shown and map to "".
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnsupportedKind):
		return MsgDropRejected
	case errors.Is(err, ErrEmptyURL):
		return MsgEmptyURL
	case errors.Is(err, ErrEmptyCode):
		return MsgEmptyCode
	case errors.Is(err, ErrNoSourceLoaded):
		return MsgNothingLoaded
	}

	switch CategoryOf(err) {
	case CategoryCollaborator:
		return ""
	case CategoryPlayback:
		return MsgPlayFailed
	case CategoryValidation:
		var ve *ValidationError
		errors.As(err, &ve)
		return ve.Message
	default:
		return MsgSetupFailed
	}
}
