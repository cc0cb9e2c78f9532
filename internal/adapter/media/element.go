// Package media implements decoder-backed media elements: the Go
// counterpart of the <audio> and <video> elements the visualizer plays.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/truestream/internal/adapter/decoder"
	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// DefaultChunk is how much audio the playback goroutine pushes per step.
const DefaultChunk = 20 * time.Millisecond

// Gate decides whether playback may start, e.g. an autoplay policy or an
// output device that must be ready first. It may block until ctx is done.
type Gate func(ctx context.Context) error

// Opener opens a decoded stream for a source.
type Opener interface {
	Open(src domain.MediaSource) (decoder.Stream, error)
}

type listenerEntry struct {
	id ports.ListenerID
	fn ports.ElementListener
}

// Element plays the source behind an object URL in real time, pushing PCM
// to the captured sink chunk by chunk.
type Element struct {
	id      domain.ElementID
	kind    domain.MediaKind
	url     domain.ObjectURL
	logger  *slog.Logger
	store   ports.ObjectURLStore
	opener  Opener
	surface *Surface
	gate    Gate
	chunk   time.Duration

	mu           sync.Mutex
	stream       decoder.Stream
	sink         ports.PCMSink
	captured     bool
	attached     bool
	listeners    []listenerEntry
	nextListener ports.ListenerID
	playing      bool
	ended        bool
	closed       bool
	started      bool
	played       time.Duration

	stop chan struct{}
	done chan struct{}
}

// ID returns the element identifier.
func (e *Element) ID() domain.ElementID { return e.id }

// Kind returns the media kind.
func (e *Element) Kind() domain.MediaKind { return e.kind }

// URL returns the object URL the element reads.
func (e *Element) URL() domain.ObjectURL { return e.url }

// Done is closed when the playback goroutine has exited after Close.
func (e *Element) Done() <-chan struct{} { return e.done }

// Attached reports whether the element is on the off-screen surface.
func (e *Element) Attached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attached
}

// Position returns how much audio has been played.
func (e *Element) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.played
}

// Load resolves the URL and opens a decoder. Loading twice is a no-op.
func (e *Element) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadLocked()
}

func (e *Element) loadLocked() error {
	if e.closed {
		return domain.ErrElementClosed
	}
	if e.stream != nil {
		return nil
	}

	src, err := e.store.Resolve(e.url)
	if err != nil {
		return fmt.Errorf("load element %d: %w", e.id, err)
	}
	stream, err := e.opener.Open(src)
	if err != nil {
		return fmt.Errorf("load element %d: %w", e.id, err)
	}
	e.stream = stream

	e.logger.Debug("element loaded",
		slog.String("url", e.url.String()),
		slog.Int("sample_rate", stream.Format().SampleRate),
		slog.Int("channels", stream.Format().Channels))
	return nil
}

// Play starts playback after the gate grants it and emits play.
// Playing an already playing element is a no-op.
func (e *Element) Play(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrElementClosed
	}
	if e.ended {
		e.mu.Unlock()
		return fmt.Errorf("play element %d: %w", e.id, domain.ErrInvalidTransition)
	}
	if e.playing {
		e.mu.Unlock()
		return nil
	}
	if err := e.loadLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	if e.gate != nil {
		if err := e.gate(ctx); err != nil {
			return fmt.Errorf("play element %d: %w: %w", e.id, domain.ErrPlaybackRejected, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("play element %d: %w", e.id, err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrElementClosed
	}
	e.playing = true
	if !e.started {
		e.started = true
		go e.run()
	}
	e.mu.Unlock()

	e.emit(domain.ElementPlay, nil)
	return nil
}

// Pause suspends playback and emits pause. Pausing a non-playing element is a no-op.
func (e *Element) Pause() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrElementClosed
	}
	if !e.playing {
		e.mu.Unlock()
		return nil
	}
	e.playing = false
	e.mu.Unlock()

	e.emit(domain.ElementPause, nil)
	return nil
}

// Close stops playback, closes the decoder, drops listeners and detaches
// from the surface. It does not wait for the playback goroutine; use Done.
func (e *Element) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.playing = false
	e.sink = nil
	e.listeners = nil

	var err error
	if e.stream != nil {
		err = e.stream.Close()
		e.stream = nil
	}
	if e.attached {
		e.surface.Detach(e.id)
		e.attached = false
	}

	close(e.stop)
	if !e.started {
		close(e.done)
	}

	e.logger.Debug("element closed", slog.String("url", e.url.String()))
	return err
}

// AddListener registers fn for lifecycle events.
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
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of registered listeners.
func (e *Element) ListenerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// CaptureAudio binds sink as the element's only audio output.
func (e *Element) CaptureAudio(sink ports.PCMSink) (ports.PCMFormat, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ports.PCMFormat{}, domain.ErrElementClosed
	}
	if e.captured {
		return ports.PCMFormat{}, domain.ErrSourceAlreadyBound
	}
	if err := e.loadLocked(); err != nil {
		return ports.PCMFormat{}, err
	}

	e.captured = true
	e.sink = sink
	return e.stream.Format(), nil
}

// ReleaseAudio disconnects the captured sink.
func (e *Element) ReleaseAudio() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = nil
}

// run is the playback goroutine. It exits on Close, at end of stream or on
// a decode error.
func (e *Element) run() {
	defer close(e.done)

	ticker := time.NewTicker(e.chunk)
	defer ticker.Stop()

	var buf []float32
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
		}

		var (
			sink ports.PCMSink
			n    int
			err  error
		)

		e.mu.Lock()
		if !e.playing || e.stream == nil {
			e.mu.Unlock()
			continue
		}
		format := e.stream.Format()
		want := int(e.chunk.Seconds()*float64(format.SampleRate)) * format.Channels
		if cap(buf) < want {
			buf = make([]float32, want)
		}
		buf = buf[:want]
		n, err = e.stream.Read(buf)
		sink = e.sink
		if format.SampleRate > 0 && format.Channels > 0 {
			e.played += time.Duration(n/format.Channels) * time.Second / time.Duration(format.SampleRate)
		}
		finished := err != nil
		if finished {
			e.playing = false
			e.ended = errors.Is(err, io.EOF)
		}
		e.mu.Unlock()

		if sink != nil && n > 0 {
			sink.WritePCM(buf[:n])
		}

		if !finished {
			continue
		}
		if errors.Is(err, io.EOF) {
			e.emit(domain.ElementEnded, nil)
		} else {
			e.logger.Warn("element decode failed", slog.Any("error", err))
			e.emit(domain.ElementError, err)
		}
		return
	}
}

// emit delivers an event to a snapshot of the listeners, outside the lock.
func (e *Element) emit(event domain.ElementEvent, err error) {
	e.mu.Lock()
	listeners := append([]listenerEntry(nil), e.listeners...)
	e.mu.Unlock()

	for _, l := range listeners {
		l.fn(e.id, event, err)
	}
}

var _ ports.MediaElement = (*Element)(nil)
