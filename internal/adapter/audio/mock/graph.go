package mock

import (
	"context"
	"sync"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// Graph is a mock implementation of ports.AudioGraph.
// Sample fills every bin with the configured level.
type Graph struct {
	element ports.MediaElement
	bins    int
	journal *Journal

	mu         sync.Mutex
	level      uint8
	state      ports.GraphState
	failResume bool

	sampleCalls  int
	resumeCalls  int
	suspendCalls int
	closeCalls   int
	received     int
}

// WritePCM counts samples pushed by the element.
func (g *Graph) WritePCM(samples []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.received += len(samples)
}

// SetLevel sets the value Sample writes.
func (g *Graph) SetLevel(v uint8) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.level = v
}

// SetFailResume makes Resume fail (for testing).
func (g *Graph) SetFailResume(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failResume = fail
}

// FrequencyBinCount returns the configured bin count.
func (g *Graph) FrequencyBinCount() int { return g.bins }

// Sample fills dst with the configured level.
func (g *Graph) Sample(dst domain.FrequencySnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sampleCalls++
	if g.state == ports.GraphClosed {
		return
	}
	n := g.bins
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = g.level
	}
}

// Resume moves the graph to running.
func (g *Graph) Resume(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resumeCalls++
	if g.state == ports.GraphClosed {
		return domain.ErrGraphClosed
	}
	if g.failResume {
		return ErrInjected
	}
	g.state = ports.GraphRunning
	return ctx.Err()
}

// Suspend moves a running graph back to suspended.
func (g *Graph) Suspend() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.suspendCalls++
	if g.state == ports.GraphClosed {
		return domain.ErrGraphClosed
	}
	g.state = ports.GraphSuspended
	return nil
}

// State returns the graph state.
func (g *Graph) State() ports.GraphState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Close closes the graph. Idempotent.
func (g *Graph) Close() error {
	g.mu.Lock()
	g.closeCalls++
	if g.state == ports.GraphClosed {
		g.mu.Unlock()
		return nil
	}
	g.state = ports.GraphClosed
	g.journal.Record("graph.close:%d", g.element.ID())
	g.mu.Unlock()

	g.element.ReleaseAudio()
	return nil
}

// Stats returns call counters.
func (g *Graph) Stats() (samples, resumes, closes int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sampleCalls, g.resumeCalls, g.closeCalls
}

// Suspends returns how many times Suspend was called.
func (g *Graph) Suspends() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.suspendCalls
}

// Element returns the bound element.
func (g *Graph) Element() ports.MediaElement { return g.element }

// GraphFactory is a mock implementation of ports.GraphFactory.
type GraphFactory struct {
	mu         sync.Mutex
	bins       int
	level      uint8
	graphs     []*Graph
	failCreate bool
	journal    *Journal
}

// NewGraphFactory creates a factory producing graphs with 128 bins.
func NewGraphFactory() *GraphFactory {
	return &GraphFactory{bins: domain.DefaultAnalyserConfig().BinCount(), level: 128}
}

// SetFailCreate makes NewGraph fail (for testing).
func (f *GraphFactory) SetFailCreate(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCreate = fail
}

// SetLevel sets the level of graphs created afterwards.
func (f *GraphFactory) SetLevel(v uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = v
}

// SetJournal makes new graphs journal Close.
func (f *GraphFactory) SetJournal(j *Journal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.journal = j
}

// NewGraph binds a mock graph to element.
func (f *GraphFactory) NewGraph(element ports.MediaElement) (ports.AudioGraph, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCreate {
		return nil, ErrInjected
	}
	g := &Graph{
		element: element,
		bins:    f.bins,
		level:   f.level,
		state:   ports.GraphSuspended,
		journal: f.journal,
	}
	if _, err := element.CaptureAudio(g); err != nil {
		return nil, err
	}
	f.graphs = append(f.graphs, g)
	return g, nil
}

// Graphs returns every graph created so far.
func (f *GraphFactory) Graphs() []*Graph {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Graph(nil), f.graphs...)
}

// Last returns the most recent graph, or nil.
func (f *GraphFactory) Last() *Graph {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.graphs) == 0 {
		return nil
	}
	return f.graphs[len(f.graphs)-1]
}

// Live returns the number of graphs not yet closed.
func (f *GraphFactory) Live() int {
	n := 0
	for _, g := range f.Graphs() {
		if g.State() != ports.GraphClosed {
			n++
		}
	}
	return n
}

var (
	_ ports.AudioGraph   = (*Graph)(nil)
	_ ports.GraphFactory = (*GraphFactory)(nil)
)
