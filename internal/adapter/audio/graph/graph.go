// Package graph implements the audio graph the visualizer samples:
// element source node -> analyser -> destination output.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// Graph is one audio context with its three nodes, bound to one element.
type Graph struct {
	logger   *slog.Logger
	ctx      *Context
	source   *SourceNode
	analyser *Analyser
	element  ports.MediaElement

	closeOnce sync.Once
	closeErr  error
}

// FrequencyBinCount returns the analyser bin count.
func (g *Graph) FrequencyBinCount() int {
	return g.analyser.BinCount()
}

// Sample writes byte frequency data into dst. After Close it leaves dst untouched.
func (g *Graph) Sample(dst domain.FrequencySnapshot) {
	if g.ctx.State() == ports.GraphClosed {
		return
	}
	g.analyser.ByteFrequencyData(dst)
}

// Resume resumes the audio context.
func (g *Graph) Resume(ctx context.Context) error {
	return g.ctx.Resume(ctx)
}

// Suspend suspends the audio context.
func (g *Graph) Suspend() error {
	return g.ctx.Suspend()
}

// State returns the audio context state.
func (g *Graph) State() ports.GraphState {
	return g.ctx.State()
}

// Source returns the source node.
func (g *Graph) Source() *SourceNode {
	return g.source
}

// Close disconnects the source from the element and closes the context.
// Only the first call does any work.
func (g *Graph) Close() error {
	g.closeOnce.Do(func() {
		g.source.disconnect()
		g.element.ReleaseAudio()
		_, g.closeErr = g.ctx.close()
		g.analyser.Reset()
		g.logger.Debug("audio graph closed")
	})
	return g.closeErr
}

// OutputFactory creates the destination for a new graph.
type OutputFactory func() (ports.AudioOutput, error)

// Factory builds graphs with a shared analyser configuration.
type Factory struct {
	logger    *slog.Logger
	cfg       domain.AnalyserConfig
	newOutput OutputFactory
}

// NewFactory creates a graph factory.
func NewFactory(logger *slog.Logger, cfg domain.AnalyserConfig, newOutput OutputFactory) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Factory{logger: logger, cfg: cfg, newOutput: newOutput}, nil
}

// NewGraph builds a graph and captures element's audio into it.
func (f *Factory) NewGraph(element ports.MediaElement) (ports.AudioGraph, error) {
	output, err := f.newOutput()
	if err != nil {
		return nil, fmt.Errorf("create audio output: %w", err)
	}

	ctx := newContext(output)
	analyser := NewAnalyser(f.cfg)
	source := &SourceNode{ctx: ctx, analyser: analyser}

	format, err := element.CaptureAudio(source)
	if err != nil {
		_, _ = ctx.close()
		return nil, fmt.Errorf("bind source node: %w", err)
	}
	ctx.setFormat(format)

	source.mu.Lock()
	source.channels = format.Channels
	source.connected = true
	source.mu.Unlock()

	g := &Graph{
		logger:   f.logger.With(slog.Uint64("element", uint64(element.ID()))),
		ctx:      ctx,
		source:   source,
		analyser: analyser,
		element:  element,
	}
	g.logger.Debug("audio graph built",
		slog.Int("fft_size", f.cfg.FFTSize),
		slog.Float64("smoothing", f.cfg.Smoothing),
		slog.Int("sample_rate", format.SampleRate))
	return g, nil
}

var (
	_ ports.AudioGraph   = (*Graph)(nil)
	_ ports.GraphFactory = (*Factory)(nil)
)
