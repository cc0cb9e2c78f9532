package graph

import (
	"sync"

	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// NullOutput discards audio. It is the destination in headless runs and tests.
type NullOutput struct {
	mu      sync.Mutex
	running bool
	written uint64
	starts  int
	stops   int
}

// NewNullOutput creates a NullOutput.
func NewNullOutput() *NullOutput {
	return &NullOutput{}
}

// Start marks the output running.
func (o *NullOutput) Start(ports.PCMFormat) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		o.running = true
		o.starts++
	}
	return nil
}

// Stop marks the output stopped.
func (o *NullOutput) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		o.running = false
		o.stops++
	}
	return nil
}

// WritePCM counts and drops samples.
func (o *NullOutput) WritePCM(samples []float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.written += uint64(len(samples))
}

// Written returns the number of samples received while running.
func (o *NullOutput) Written() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.written
}

// Running reports whether the output is started.
func (o *NullOutput) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

var _ ports.AudioOutput = (*NullOutput)(nil)
