// Package mock provides in-memory media elements and audio graphs.
// They are used for testing the pipeline without decoding or playing audio.
package mock

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// ErrInjected is the error returned by a knob set to fail.
var ErrInjected = errors.New("mock: injected failure")

// Element is a mock implementation of ports.MediaElement.
// Play emits play synchronously, the way a real element does once playback
// has been granted. Tests drive everything else through Fire.
//
// Thread-safety: This implementation is thread-safe.
type Element struct {
	id   domain.ElementID
	kind domain.MediaKind
	url  domain.ObjectURL

	mu           sync.Mutex
	listeners    []listenerEntry
	nextListener ports.ListenerID
	sink         ports.PCMSink
	captured     bool
	attached     bool
	playing      bool
	closed       bool
	done         chan struct{}
	journal      *Journal

	// Behavior configuration (for testing error scenarios)
	failLoad error
	failPlay error
	playGate chan struct{}

	// Call counters
	loadCalls  int
	playCalls  int
	pauseCalls int
	closeCalls int
	detaches   int
}

type listenerEntry struct {
	id ports.ListenerID
	fn ports.ElementListener
}

func newElement(id domain.ElementID, url domain.ObjectURL, kind domain.MediaKind) *Element {
	return &Element{
		id:       id,
		kind:     kind,
		url:      url,
		attached: kind == domain.KindVideo,
		done:     make(chan struct{}),
	}
}

// SetFailLoad makes Load fail (for testing).
func (e *Element) SetFailLoad(fail bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failLoad = nil
	if fail {
		e.failLoad = ErrInjected
	}
}

// SetFailPlay makes Play fail with err (for testing). Nil clears it.
func (e *Element) SetFailPlay(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failPlay = err
}

// HoldPlay makes Play block until the returned release func is called or
// the Play context is done.
func (e *Element) HoldPlay() (release func()) {
	gate := make(chan struct{})
	e.mu.Lock()
	e.playGate = gate
	e.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// ID returns the element ID.
func (e *Element) ID() domain.ElementID { return e.id }

// Kind returns the media kind.
func (e *Element) Kind() domain.MediaKind { return e.kind }

// URL returns the object URL.
func (e *Element) URL() domain.ObjectURL { return e.url }

// Done is closed by Close.
func (e *Element) Done() <-chan struct{} { return e.done }

// Load simulates preloading.
func (e *Element) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadCalls++
	if e.closed {
		return domain.ErrElementClosed
	}
	return e.failLoad
}

// Play simulates starting playback.
func (e *Element) Play(ctx context.Context) error {
	e.mu.Lock()
	e.playCalls++
	if e.closed {
		e.mu.Unlock()
		return domain.ErrElementClosed
	}
	gate, failPlay := e.playGate, e.failPlay
	e.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if failPlay != nil {
		return failPlay
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrElementClosed
	}
	e.playing = true
	e.mu.Unlock()

	e.Fire(domain.ElementPlay, nil)
	return nil
}

// Pause simulates pausing and emits pause.
func (e *Element) Pause() error {
	e.mu.Lock()
	e.pauseCalls++
	if e.closed {
		e.mu.Unlock()
		return domain.ErrElementClosed
	}
	was := e.playing
	e.playing = false
	e.mu.Unlock()

	if was {
		e.Fire(domain.ElementPause, nil)
	}
	return nil
}

// Close releases the element. Idempotent.
func (e *Element) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeCalls++
	if e.closed {
		return nil
	}
	e.journal.Record("element.close:%d", e.id)
	e.closed = true
	e.playing = false
	e.sink = nil
	if e.attached {
		e.attached = false
		e.detaches++
	}
	close(e.done)
	return nil
}

// AddListener registers fn.
func (e *Element) AddListener(fn ports.ElementListener) ports.ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextListener++
	e.listeners = append(e.listeners, listenerEntry{id: e.nextListener, fn: fn})
	return e.nextListener
}

// RemoveListener unregisters a listener.
func (e *Element) RemoveListener(id ports.ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			e.journal.Record("element.remove_listener:%d", e.id)
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

// CaptureAudio binds sink once.
func (e *Element) CaptureAudio(sink ports.PCMSink) (ports.PCMFormat, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ports.PCMFormat{}, domain.ErrElementClosed
	}
	if e.captured {
		return ports.PCMFormat{}, domain.ErrSourceAlreadyBound
	}
	e.captured = true
	e.sink = sink
	return ports.PCMFormat{SampleRate: 44100, Channels: 2}, nil
}

// ReleaseAudio disconnects the sink.
func (e *Element) ReleaseAudio() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = nil
}

// Attached reports whether the element sits on the off-screen surface.
func (e *Element) Attached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attached
}

// Fire delivers an event to the currently registered listeners, as the
// element's playback goroutine would.
func (e *Element) Fire(event domain.ElementEvent, err error) {
	e.mu.Lock()
	switch event {
	case domain.ElementPlay:
		e.playing = true
	case domain.ElementPause, domain.ElementEnded, domain.ElementError:
		e.playing = false
	}
	listeners := append([]listenerEntry(nil), e.listeners...)
	e.mu.Unlock()

	for _, l := range listeners {
		l.fn(e.id, event, err)
	}
}

// FireTo delivers an event to a listener set captured earlier, simulating an
// event that was already in flight when listeners were removed.
func (e *Element) FireTo(listeners []ports.ElementListener, event domain.ElementEvent, err error) {
	for _, fn := range listeners {
		fn(e.id, event, err)
	}
}

// Listeners returns the registered listener funcs.
func (e *Element) Listeners() []ports.ElementListener {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ports.ElementListener, len(e.listeners))
	for i, l := range e.listeners {
		out[i] = l.fn
	}
	return out
}

// Push writes samples to the captured sink, if any.
func (e *Element) Push(samples []float32) {
	e.mu.Lock()
	sink := e.sink
	e.mu.Unlock()
	if sink != nil {
		sink.WritePCM(samples)
	}
}

// Stats reports call counters.
func (e *Element) Stats() (loads, plays, pauses, closes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadCalls, e.playCalls, e.pauseCalls, e.closeCalls
}

// Detaches returns how many times the element left the surface.
func (e *Element) Detaches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detaches
}

// ListenerCount returns the number of registered listeners.
func (e *Element) ListenerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// Closed reports whether Close has been called.
func (e *Element) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// ElementFactory is a mock implementation of ports.ElementFactory.
type ElementFactory struct {
	logger *slog.Logger

	mu       sync.Mutex
	nextID   domain.ElementID
	elements []*Element

	failCreate bool
	onCreate   func(*Element)
	journal    *Journal
}

// NewElementFactory creates a mock element factory.
func NewElementFactory() *ElementFactory {
	return &ElementFactory{logger: slog.Default()}
}

// SetLogger sets the logger for this factory.
func (f *ElementFactory) SetLogger(logger *slog.Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger = logger
}

// SetJournal makes new elements journal close and listener removal.
func (f *ElementFactory) SetJournal(j *Journal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.journal = j
}

// SetFailCreate makes NewElement fail (for testing).
func (f *ElementFactory) SetFailCreate(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCreate = fail
}

// OnCreate registers a hook run on every new element before it is returned.
func (f *ElementFactory) OnCreate(fn func(*Element)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCreate = fn
}

// NewElement creates a mock element.
func (f *ElementFactory) NewElement(url domain.ObjectURL, kind domain.MediaKind) (ports.MediaElement, error) {
	f.mu.Lock()
	if f.failCreate {
		f.mu.Unlock()
		return nil, ErrInjected
	}
	if kind == domain.KindUnknown {
		f.mu.Unlock()
		return nil, domain.NewValidationError("kind", kind.String(), "not an audio or video source", domain.ErrUnsupportedKind)
	}
	f.nextID++
	e := newElement(f.nextID, url, kind)
	e.journal = f.journal
	f.elements = append(f.elements, e)
	hook := f.onCreate
	logger := f.logger
	f.mu.Unlock()

	if hook != nil {
		hook(e)
	}
	logger.Debug("mock element created", slog.Uint64("element", uint64(e.id)))
	return e, nil
}

// Elements returns every element created so far.
func (f *ElementFactory) Elements() []*Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Element(nil), f.elements...)
}

// Last returns the most recently created element, or nil.
func (f *ElementFactory) Last() *Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.elements) == 0 {
		return nil
	}
	return f.elements[len(f.elements)-1]
}

// Live returns the number of elements not yet closed.
func (f *ElementFactory) Live() int {
	f.mu.Lock()
	elements := append([]*Element(nil), f.elements...)
	f.mu.Unlock()

	live := 0
	for _, e := range elements {
		if !e.Closed() {
			live++
		}
	}
	return live
}

// AttachedCount returns how many elements are attached to the surface.
func (f *ElementFactory) AttachedCount() int {
	f.mu.Lock()
	elements := append([]*Element(nil), f.elements...)
	f.mu.Unlock()

	n := 0
	for _, e := range elements {
		if e.Attached() {
			n++
		}
	}
	return n
}

var (
	_ ports.MediaElement   = (*Element)(nil)
	_ ports.ElementFactory = (*ElementFactory)(nil)
)
