package clock

import (
	"sync"
	"time"

	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// Manual is a frame scheduler driven by the caller. Nothing runs until Step
// or Advance is called.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	frame   time.Duration
	nextID  ports.FrameID
	pending []manualEntry
}

type manualEntry struct {
	id ports.FrameID
	fn ports.FrameCallback
}

// NewManual creates a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, frame: DefaultFrameInterval}
}

// RequestFrame queues fn.
func (m *Manual) RequestFrame(fn ports.FrameCallback) ports.FrameID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.pending = append(m.pending, manualEntry{id: m.nextID, fn: fn})
	return m.nextID
}

// CancelFrame removes a queued callback.
func (m *Manual) CancelFrame(id ports.FrameID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.pending {
		if e.id == id {
			m.pending = append(m.pending[:i:i], m.pending[i+1:]...)
			return
		}
	}
}

// Pending returns the number of queued callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Take dequeues the queued callbacks without running them, the way a
// scheduler does just before it invokes them. Call each with Now() to run.
func (m *Manual) Take() []ports.FrameCallback {
	m.mu.Lock()
	defer m.mu.Unlock()
	fns := make([]ports.FrameCallback, len(m.pending))
	for i, e := range m.pending {
		fns[i] = e.fn
	}
	m.pending = nil
	return fns
}

// Step advances one frame and runs the callbacks queued before the step.
// It returns how many ran.
func (m *Manual) Step() int {
	m.mu.Lock()
	m.now = m.now.Add(m.frame)
	now := m.now
	m.mu.Unlock()

	fns := m.Take()
	for _, fn := range fns {
		fn(now)
	}
	return len(fns)
}

// Advance runs n frames and returns the total number of callbacks run.
func (m *Manual) Advance(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += m.Step()
	}
	return total
}

var _ ports.FrameScheduler = (*Manual)(nil)
