package service

import (
	"time"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// samplingLoop keeps exactly one frame request outstanding while the owning
// element plays. It is not safe for concurrent use: every method runs under
// the pipeline lock.
//
// A callback carries the generation it was armed in. stop bumps the
// generation, so a callback the scheduler already dequeued before
// CancelFrame ran is rejected by accepts.
type samplingLoop struct {
	frames ports.FrameScheduler
	tick   func(generation uint64, now time.Time)

	running    bool
	generation uint64
	owner      domain.ElementID
	graph      ports.AudioGraph
	pending    ports.FrameID
	buf        domain.FrequencySnapshot
	ticks      uint64
}

func newSamplingLoop(frames ports.FrameScheduler, bins int, tick func(uint64, time.Time)) *samplingLoop {
	return &samplingLoop{
		frames: frames,
		tick:   tick,
		buf:    make(domain.FrequencySnapshot, bins),
	}
}

// start binds the loop to owner and requests the first frame.
// Starting a loop that already runs for owner is a no-op.
func (l *samplingLoop) start(owner domain.ElementID, graph ports.AudioGraph) {
	if l.running && l.owner == owner {
		return
	}
	l.stop()

	l.running = true
	l.owner = owner
	l.graph = graph
	if n := graph.FrequencyBinCount(); n > 0 && len(l.buf) != n {
		l.buf = make(domain.FrequencySnapshot, n)
	}
	l.arm()
}

// stop cancels the pending frame and invalidates callbacks in flight.
func (l *samplingLoop) stop() {
	if !l.running {
		return
	}
	l.running = false
	l.generation++
	if l.pending != 0 {
		l.frames.CancelFrame(l.pending)
		l.pending = 0
	}
	l.graph = nil
}

func (l *samplingLoop) arm() {
	gen := l.generation
	l.pending = l.frames.RequestFrame(func(now time.Time) {
		l.tick(gen, now)
	})
}

// accepts reports whether a callback armed in generation may still act for owner.
func (l *samplingLoop) accepts(generation uint64, owner domain.ElementID) bool {
	return l.running && l.generation == generation && l.owner == owner
}

// sample reads the analyser into the loop buffer and returns a copy that
// is safe to publish.
func (l *samplingLoop) sample() domain.FrequencySnapshot {
	l.pending = 0
	l.graph.Sample(l.buf)
	l.ticks++
	return l.buf.Clone()
}
