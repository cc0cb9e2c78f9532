package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// Context is an audio context: it owns the destination output and gates
// whether processed audio reaches it. A new context starts suspended.
type Context struct {
	mu     sync.Mutex
	state  ports.GraphState
	output ports.AudioOutput
	format ports.PCMFormat
}

func newContext(output ports.AudioOutput) *Context {
	return &Context{state: ports.GraphSuspended, output: output}
}

// State returns the context state.
func (c *Context) State() ports.GraphState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Context) setFormat(f ports.PCMFormat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.format = f
}

// Resume starts the destination output.
func (c *Context) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case ports.GraphClosed:
		return domain.ErrGraphClosed
	case ports.GraphRunning:
		return nil
	}
	if err := c.output.Start(c.format); err != nil {
		return fmt.Errorf("resume audio context: %w", err)
	}
	c.state = ports.GraphRunning
	return nil
}

// Suspend stops the destination output.
func (c *Context) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case ports.GraphClosed:
		return domain.ErrGraphClosed
	case ports.GraphSuspended:
		return nil
	}
	c.state = ports.GraphSuspended
	if err := c.output.Stop(); err != nil {
		return fmt.Errorf("suspend audio context: %w", err)
	}
	return nil
}

// deliver forwards samples to the output while running.
func (c *Context) deliver(samples []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ports.GraphRunning {
		c.output.WritePCM(samples)
	}
}

// close stops the output. It reports false when the context was already closed.
func (c *Context) close() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == ports.GraphClosed {
		return false, nil
	}
	wasRunning := c.state == ports.GraphRunning
	c.state = ports.GraphClosed
	if wasRunning {
		return true, c.output.Stop()
	}
	return true, nil
}

// SourceNode receives an element's PCM. It feeds the analyser with a mono
// mix and passes the original samples on to the destination.
type SourceNode struct {
	ctx      *Context
	analyser *Analyser

	mu        sync.Mutex
	channels  int
	connected bool
	mono      []float32
	received  uint64
}

// WritePCM implements ports.PCMSink.
func (s *SourceNode) WritePCM(samples []float32) {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return
	}
	ch := s.channels
	if ch < 1 {
		ch = 1
	}
	frames := len(samples) / ch
	if cap(s.mono) < frames {
		s.mono = make([]float32, frames)
	}
	mono := s.mono[:frames]
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += samples[i*ch+c]
		}
		mono[i] = sum / float32(ch)
	}
	s.received += uint64(len(samples))
	s.analyser.Write(mono)
	s.mu.Unlock()

	s.ctx.deliver(samples)
}

// Received returns the number of samples the node has accepted.
func (s *SourceNode) Received() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

func (s *SourceNode) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
}
