// Package clock provides frame schedulers for the sampling loop.
// Ticker fires callbacks at the display refresh rate; Manual is stepped
// by tests.
package clock

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// DefaultFrameInterval is one frame at 60 Hz.
const DefaultFrameInterval = time.Second / 60

// Ticker runs requested callbacks once on the next frame tick. Each
// RequestFrame schedules exactly one invocation; callers re-arm from inside
// their callback.
//
// Thread-safety: This implementation is thread-safe. Callbacks run on the
// ticker goroutine, never under the ticker's lock.
type Ticker struct {
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	nextID  ports.FrameID
	pending map[ports.FrameID]ports.FrameCallback
	order   []ports.FrameID
	closed  bool
	fired   uint64

	stop chan struct{}
	done chan struct{}
}

// NewTicker starts a frame ticker. A non-positive interval uses
// DefaultFrameInterval. Close must be called to stop its goroutine.
func NewTicker(logger *slog.Logger, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	t := &Ticker{
		logger:   logger.With(slog.String("service", "FrameTicker")),
		interval: interval,
		pending:  make(map[ports.FrameID]ports.FrameCallback),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go t.run()
	return t
}

// RequestFrame schedules fn for the next tick. After Close it returns 0 and
// fn never runs.
func (t *Ticker) RequestFrame(fn ports.FrameCallback) ports.FrameID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0
	}
	t.nextID++
	t.pending[t.nextID] = fn
	t.order = append(t.order, t.nextID)
	return t.nextID
}

// CancelFrame removes a pending callback. Unknown ids are ignored.
func (t *Ticker) CancelFrame(id ports.FrameID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, id)
}

// Pending returns the number of scheduled callbacks.
func (t *Ticker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Fired returns the number of callbacks run so far.
func (t *Ticker) Fired() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Close stops the ticker and waits for an in-progress tick to finish.
// Pending callbacks are dropped. Safe to call more than once.
func (t *Ticker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		<-t.done
		return nil
	}
	t.closed = true
	dropped := len(t.pending)
	t.pending = make(map[ports.FrameID]ports.FrameCallback)
	t.order = nil
	close(t.stop)
	t.mu.Unlock()

	<-t.done
	t.logger.Debug("frame ticker stopped", slog.Int("dropped", dropped))
	return nil
}

func (t *Ticker) run() {
	defer close(t.done)

	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-t.stop:
			return
		case now := <-tk.C:
			for _, fn := range t.take() {
				fn(now)
			}
		}
	}
}

// take dequeues every pending callback in request order.
func (t *Ticker) take() []ports.FrameCallback {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.order) == 0 {
		return nil
	}
	fns := make([]ports.FrameCallback, 0, len(t.pending))
	for _, id := range t.order {
		if fn, ok := t.pending[id]; ok {
			fns = append(fns, fn)
		}
	}
	t.pending = make(map[ports.FrameID]ports.FrameCallback)
	t.order = t.order[:0]
	t.fired += uint64(len(fns))
	return fns
}

var _ ports.FrameScheduler = (*Ticker)(nil)
