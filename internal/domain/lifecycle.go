package domain

import "fmt"

// PlaybackState is the lifecycle state of the current media element.
type PlaybackState int

const (
	// StateIdle means no element is loaded.
	StateIdle PlaybackState = iota
	// StateReady means an element is loaded and waiting for play.
	StateReady
	// StatePlaying means the element is producing audio and the sampling loop runs.
	StatePlaying
	// StatePaused means playback is suspended and can resume.
	StatePaused
	// StateEnded means the element reached its end. Terminal for that element.
	StateEnded
	// StateErrored means the element failed. Terminal for that element.
	StateErrored
)

// String returns the state name.
func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsTerminal reports whether a new source must be loaded to leave this state.
func (s PlaybackState) IsTerminal() bool {
	return s == StateEnded || s == StateErrored
}

// Sampling reports whether the sampling loop runs in this state.
func (s PlaybackState) Sampling() bool {
	return s == StatePlaying
}

// CanPlay reports whether a play request is meaningful in this state.
func (s PlaybackState) CanPlay() bool {
	return s == StateReady || s == StatePaused
}

// Trigger is an input to the playback state machine.
type Trigger int

const (
	TriggerLoad Trigger = iota
	TriggerPlay
	TriggerPause
	TriggerEnded
	TriggerError
)

// String returns the trigger name.
func (t Trigger) String() string {
	switch t {
	case TriggerLoad:
		return "load"
	case TriggerPlay:
		return "play"
	case TriggerPause:
		return "pause"
	case TriggerEnded:
		return "ended"
	case TriggerError:
		return "error"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

// NextState returns the state reached from s on trigger t.
//
//	Idle    --load-->  Ready
//	Ready   --play-->  Playing
//	Paused  --play-->  Playing
//	Playing --pause--> Paused
//	Playing --ended--> Ended
//	any     --error--> Errored
//
// Ended and Errored accept nothing but error. Any other pair returns
// ErrInvalidTransition and leaves the state unchanged.
func NextState(s PlaybackState, t Trigger) (PlaybackState, error) {
	if t == TriggerError {
		return StateErrored, nil
	}

	switch {
	case s == StateIdle && t == TriggerLoad:
		return StateReady, nil
	case (s == StateReady || s == StatePaused) && t == TriggerPlay:
		return StatePlaying, nil
	case s == StatePlaying && t == TriggerPause:
		return StatePaused, nil
	case s == StatePlaying && t == TriggerEnded:
		return StateEnded, nil
	}

	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, t, s)
}

// ElementEvent is a lifecycle notification raised by a media element.
type ElementEvent int

const (
	ElementPlay ElementEvent = iota
	ElementPause
	ElementEnded
	ElementError
)

// String returns the DOM-style event name.
func (e ElementEvent) String() string {
	switch e {
	case ElementPlay:
		return "play"
	case ElementPause:
		return "pause"
	case ElementEnded:
		return "ended"
	case ElementError:
		return "error"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Trigger maps the element event onto the state machine input.
func (e ElementEvent) Trigger() Trigger {
	switch e {
	case ElementPlay:
		return TriggerPlay
	case ElementPause:
		return TriggerPause
	case ElementEnded:
		return TriggerEnded
	default:
		return TriggerError
	}
}
