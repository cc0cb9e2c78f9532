// Package ports define interfaces for dependency inversion.
// These interfaces allow the pipeline to remain independent of decoders,
// output devices, schedulers and remote services.
package ports

import (
	"context"
	"time"

	"github.com/tejashwikalptaru/truestream/internal/domain"
)

// ObjectURLStore issues and revokes object URL handles.
// This mirrors the browser's createObjectURL/revokeObjectURL pair: a handle
// keeps the source bytes reachable until it is released.
//
// Thread-safety: Implementations must be safe for concurrent use.
type ObjectURLStore interface {
	// Acquire makes the source addressable and returns its handle.
	// Returns domain.ErrObjectURLOutstanding if a handle is already live.
	Acquire(src domain.MediaSource) (domain.ObjectURL, error)

	// Release revokes a handle. Releasing domain.NoObjectURL, an unknown
	// handle or an already released handle is a no-op.
	Release(url domain.ObjectURL)

	// Resolve returns the source behind a live handle.
	// Returns domain.ErrUnknownObjectURL for released or foreign handles.
	Resolve(url domain.ObjectURL) (domain.MediaSource, error)

	// Live returns the number of outstanding handles.
	Live() int
}

// ListenerID identifies a registered element listener.
type ListenerID uint64

// ElementListener receives element lifecycle events. err is set for
// domain.ElementError and nil otherwise.
//
// Listeners may be called from the element's playback goroutine or
// synchronously from Play and Pause. They must not call back into the
// element while holding locks the element might need.
type ElementListener func(id domain.ElementID, event domain.ElementEvent, err error)

// PCMFormat describes interleaved float32 PCM.
type PCMFormat struct {
	SampleRate int
	Channels   int
}

// PCMSink consumes interleaved float32 samples in [-1, 1].
// WritePCM must not retain samples after it returns.
type PCMSink interface {
	WritePCM(samples []float32)
}

// MediaElement is a playable handle over an object URL.
// It is the Go counterpart of an <audio> or <video> element: it decodes the
// bytes behind its URL and emits play, pause, ended and error events.
//
// Implementations must be thread-safe.
type MediaElement interface {
	// ID returns the process-unique element identifier.
	ID() domain.ElementID

	// Kind returns the media kind the element was created for.
	Kind() domain.MediaKind

	// URL returns the object URL the element reads from.
	URL() domain.ObjectURL

	// Load prepares the decoder (eager preload).
	// Returns an error if the bytes cannot be decoded.
	Load() error

	// Play starts or resumes playback. It may block until the output grants
	// playback and may fail, e.g. with domain.ErrPlaybackRejected.
	// A successful Play emits domain.ElementPlay.
	Play(ctx context.Context) error

	// Pause suspends playback and emits domain.ElementPause.
	Pause() error

	// Close stops playback, drops the source and detaches from the surface.
	// Close is idempotent and does not wait for the playback goroutine.
	Close() error

	// Done is closed once the element's playback goroutine has exited
	// after Close.
	Done() <-chan struct{}

	// AddListener registers a lifecycle listener.
	AddListener(fn ElementListener) ListenerID

	// RemoveListener unregisters a listener. Unknown IDs are ignored.
	RemoveListener(id ListenerID)

	// CaptureAudio routes the element's decoded audio into sink instead of
	// the default output. An element can be captured only once; a second
	// call returns domain.ErrSourceAlreadyBound.
	CaptureAudio(sink PCMSink) (PCMFormat, error)

	// ReleaseAudio disconnects the captured sink. The capture stays
	// consumed: the element cannot be captured again.
	ReleaseAudio()

	// Attached reports whether the element is attached to the off-screen surface.
	Attached() bool
}

// ElementFactory creates media elements.
type ElementFactory interface {
	// NewElement creates an element for url. Video kind elements are
	// attached to the off-screen surface before NewElement returns.
	NewElement(url domain.ObjectURL, kind domain.MediaKind) (MediaElement, error)
}

// FrameID identifies a pending frame request. Zero is never issued.
type FrameID uint64

// FrameCallback runs once per requested frame.
type FrameCallback func(now time.Time)

// FrameScheduler delivers one-shot per-frame callbacks, the way
// requestAnimationFrame does in a browser.
type FrameScheduler interface {
	// RequestFrame schedules fn for the next frame.
	RequestFrame(fn FrameCallback) FrameID

	// CancelFrame removes a pending request. Cancelling an ID that already
	// fired or was cancelled is a no-op.
	CancelFrame(id FrameID)
}
