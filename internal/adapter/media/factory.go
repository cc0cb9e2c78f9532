package media

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// Factory creates Elements that read from one object URL store.
type Factory struct {
	logger  *slog.Logger
	store   ports.ObjectURLStore
	opener  Opener
	surface *Surface

	mu    sync.Mutex
	gate  Gate
	chunk time.Duration

	nextID atomic.Uint64
}

// NewFactory creates an element factory. surface receives video elements.
func NewFactory(logger *slog.Logger, store ports.ObjectURLStore, opener Opener, surface *Surface) *Factory {
	return &Factory{
		logger:  logger,
		store:   store,
		opener:  opener,
		surface: surface,
		chunk:   DefaultChunk,
	}
}

// SetGate installs the playback gate applied to new elements. The desktop
// has no autoplay policy, so the application leaves it unset and a refused
// playback device surfaces through the graph's Resume instead; tests use
// the gate to reject or stall Play.
func (f *Factory) SetGate(g Gate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = g
}

// SetChunk changes the playback step of new elements.
func (f *Factory) SetChunk(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d > 0 {
		f.chunk = d
	}
}

// Surface returns the off-screen surface.
func (f *Factory) Surface() *Surface {
	return f.surface
}

// NewElement creates an element for url. Video elements are attached to the
// surface here and detached by Close.
func (f *Factory) NewElement(url domain.ObjectURL, kind domain.MediaKind) (ports.MediaElement, error) {
	if kind == domain.KindUnknown {
		return nil, domain.NewValidationError("kind", kind.String(), "not an audio or video source", domain.ErrUnsupportedKind)
	}
	if !url.IsValid() {
		return nil, fmt.Errorf("new element: %w", domain.ErrUnknownObjectURL)
	}

	f.mu.Lock()
	gate, chunk := f.gate, f.chunk
	f.mu.Unlock()

	id := domain.ElementID(f.nextID.Add(1))
	e := &Element{
		id:      id,
		kind:    kind,
		url:     url,
		logger:  f.logger.With(slog.Uint64("element", uint64(id)), slog.String("kind", kind.String())),
		store:   f.store,
		opener:  f.opener,
		surface: f.surface,
		gate:    gate,
		chunk:   chunk,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if kind == domain.KindVideo {
		if err := f.surface.Attach(id); err != nil {
			return nil, fmt.Errorf("new element: %w", err)
		}
		e.attached = true
	}

	return e, nil
}

var _ ports.ElementFactory = (*Factory)(nil)
