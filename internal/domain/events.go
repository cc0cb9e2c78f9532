package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Source events
	EventSourceLoaded   EventType = "source.loaded"
	EventSourceRejected EventType = "source.rejected"
	EventSourceReleased EventType = "source.released"

	// Playback events
	EventStateChanged EventType = "playback.state_changed"

	// Visualization events
	EventVisualFrame EventType = "visual.frame"

	// User notices
	EventNotice EventType = "notice"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// SourceLoadedEvent is published when a new source is wired into the pipeline
// and its element is Ready.
type SourceLoadedEvent struct {
	baseEvent
	Info    TrackInfo
	URL     ObjectURL
	Element ElementID
}

// Type returns the event type.
func (e SourceLoadedEvent) Type() EventType {
	return EventSourceLoaded
}

// NewSourceLoadedEvent creates a new SourceLoadedEvent.
func NewSourceLoadedEvent(info TrackInfo, url ObjectURL, element ElementID) SourceLoadedEvent {
	return SourceLoadedEvent{
		baseEvent: newBaseEvent(),
		Info:      info,
		URL:       url,
		Element:   element,
	}
}

// SourceRejectedEvent is published when a selected source is not audio or video.
// The pipeline is left untouched.
type SourceRejectedEvent struct {
	baseEvent
	Name     string
	MIMEType string
	Reason   string
}

// Type returns the event type.
func (e SourceRejectedEvent) Type() EventType {
	return EventSourceRejected
}

// NewSourceRejectedEvent creates a new SourceRejectedEvent.
func NewSourceRejectedEvent(name, mimeType, reason string) SourceRejectedEvent {
	return SourceRejectedEvent{
		baseEvent: newBaseEvent(),
		Name:      name,
		MIMEType:  mimeType,
		Reason:    reason,
	}
}

// SourceReleasedEvent is published after a pipeline instance has been torn down.
type SourceReleasedEvent struct {
	baseEvent
	URL     ObjectURL
	Element ElementID
}

// Type returns the event type.
func (e SourceReleasedEvent) Type() EventType {
	return EventSourceReleased
}

// NewSourceReleasedEvent creates a new SourceReleasedEvent.
func NewSourceReleasedEvent(url ObjectURL, element ElementID) SourceReleasedEvent {
	return SourceReleasedEvent{
		baseEvent: newBaseEvent(),
		URL:       url,
		Element:   element,
	}
}

// StateChangedEvent is published on every playback state transition.
type StateChangedEvent struct {
	baseEvent
	From    PlaybackState
	To      PlaybackState
	Element ElementID
}

// Type returns the event type.
func (e StateChangedEvent) Type() EventType {
	return EventStateChanged
}

// NewStateChangedEvent creates a new StateChangedEvent.
func NewStateChangedEvent(from, to PlaybackState, element ElementID) StateChangedEvent {
	return StateChangedEvent{
		baseEvent: newBaseEvent(),
		From:      from,
		To:        to,
		Element:   element,
	}
}

// VisualFrameEvent carries the data the visualization renders each frame.
// Snapshot is nil when nothing is playing; consumers must tolerate that.
type VisualFrameEvent struct {
	baseEvent
	Snapshot FrequencySnapshot
	State    PlaybackState
}

// Type returns the event type.
func (e VisualFrameEvent) Type() EventType {
	return EventVisualFrame
}

// Playing reports whether the frame was sampled from a playing element.
func (e VisualFrameEvent) Playing() bool {
	return e.State == StatePlaying
}

// NewVisualFrameEvent creates a new VisualFrameEvent. The snapshot is not copied.
func NewVisualFrameEvent(snapshot FrequencySnapshot, state PlaybackState) VisualFrameEvent {
	return VisualFrameEvent{
		baseEvent: newBaseEvent(),
		Snapshot:  snapshot,
		State:     state,
	}
}

// NoticeEvent is a single user-visible message.
type NoticeEvent struct {
	baseEvent
	Message  string
	Category ErrorCategory
	Err      error
}

// Type returns the event type.
func (e NoticeEvent) Type() EventType {
	return EventNotice
}

// NewNoticeEvent creates a new NoticeEvent.
func NewNoticeEvent(message string, category ErrorCategory, err error) NoticeEvent {
	return NoticeEvent{
		baseEvent: newBaseEvent(),
		Message:   message,
		Category:  category,
		Err:       err,
	}
}
