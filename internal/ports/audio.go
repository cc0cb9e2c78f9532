package ports

import (
	"context"

	"github.com/tejashwikalptaru/truestream/internal/domain"
)

// GraphState is the state of an audio context.
type GraphState string

const (
	GraphSuspended GraphState = "suspended"
	GraphRunning   GraphState = "running"
	GraphClosed    GraphState = "closed"
)

// AudioGraph is an audio processing graph bound to one media element:
// source node -> analyser node -> destination.
//
// Implementations must be thread-safe: Sample is called from the frame
// callback while the element's playback goroutine feeds the source node.
type AudioGraph interface {
	// FrequencyBinCount returns the number of bins Sample fills (FFT size / 2).
	FrequencyBinCount() int

	// Sample writes the current byte frequency data into dst, up to
	// min(len(dst), FrequencyBinCount()) bins. When nothing is playing the
	// data is stale or zero. Sample never fails.
	Sample(dst domain.FrequencySnapshot)

	// Resume starts a suspended context. Resuming a running context is a no-op.
	Resume(ctx context.Context) error

	// Suspend stops a running context and releases the output device.
	// Suspending a suspended context is a no-op.
	Suspend() error

	// State returns the context state.
	State() GraphState

	// Close disconnects all nodes and closes the context exactly once.
	// Closing a closed graph returns nil.
	Close() error
}

// GraphFactory builds audio graphs.
type GraphFactory interface {
	// NewGraph creates a context, binds a source node to element and wires
	// it through an analyser to the default destination.
	// Returns domain.ErrSourceAlreadyBound if element already has a source node.
	NewGraph(element MediaElement) (AudioGraph, error)
}

// AudioOutput is the destination sink behind a graph.
type AudioOutput interface {
	PCMSink

	// Start begins draining samples to the device.
	Start(format PCMFormat) error

	// Stop halts the device. Stop on a stopped output is a no-op.
	Stop() error
}
