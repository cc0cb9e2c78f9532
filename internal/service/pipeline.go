// Package service provides the pipeline and source-selection logic of TrueStream.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// DefaultDrainTimeout bounds how long Shutdown waits for the last element's
// playback goroutine to exit.
const DefaultDrainTimeout = 2 * time.Second

// PipelineDeps are the adapters a PipelineService drives.
// Tags, Metrics and Reporter are optional.
type PipelineDeps struct {
	URLs     ports.ObjectURLStore
	Elements ports.ElementFactory
	Graphs   ports.GraphFactory
	Frames   ports.FrameScheduler
	Bus      ports.EventBus

	Tags     ports.TagReader
	Metrics  ports.PipelineMetrics
	Reporter ports.ErrorReporter
}

// instance is one (URL, element, graph) triple plus the listener handle
// registered on the element. They are created and released together.
type instance struct {
	url      domain.ObjectURL
	element  ports.MediaElement
	graph    ports.AudioGraph
	listener ports.ListenerID
	info     domain.TrackInfo
}

func (i *instance) elementID() domain.ElementID {
	if i == nil || i.element == nil {
		return 0
	}
	return i.element.ID()
}

// PipelineService owns the single live instance and its sampling loop.
//
// Element events, frame callbacks and UI commands arrive on different
// goroutines; all of them are serialized by mu and checked against the
// current element before acting. Events are published while mu is held, so
// bus handlers must not call back into the service.
type PipelineService struct {
	logger       *slog.Logger
	deps         PipelineDeps
	drainTimeout time.Duration

	mu          sync.Mutex
	active      *instance
	state       domain.PlaybackState
	loop        *samplingLoop
	last        domain.FrequencySnapshot
	pendingPlay *instance
	closed      bool
}

// NewPipelineService creates an idle pipeline.
func NewPipelineService(logger *slog.Logger, deps PipelineDeps) *PipelineService {
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}

	s := &PipelineService{
		logger:       logger.With(slog.String("service", "pipeline")),
		deps:         deps,
		drainTimeout: DefaultDrainTimeout,
		state:        domain.StateIdle,
	}
	s.loop = newSamplingLoop(deps.Frames, domain.DefaultAnalyserConfig().BinCount(), s.onFrame)

	s.logger.Debug("pipeline service initialized")
	return s
}

// SetDrainTimeout changes how long Shutdown waits for the element to exit.
func (s *PipelineService) SetDrainTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drainTimeout = d
}

// LoadNewSource replaces the current instance with one built for src.
//
// The previous instance is torn down first. Sources that are neither audio
// nor video are rejected and leave the pipeline untouched. When any setup
// step fails the partial instance is torn down in the same order, the
// pipeline reverts to Idle and one notice is published.
func (s *PipelineService) LoadNewSource(src domain.MediaSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrPipelineClosed
	}

	if err := validateSource(src); err != nil {
		s.logger.Debug("source rejected",
			slog.String("name", src.Name),
			slog.String("mime", src.MIMEType),
			slog.Any("error", err))
		s.deps.Metrics.ObserveRejection(src.Kind().String())
		s.deps.Bus.Publish(domain.NewSourceRejectedEvent(src.Name, src.MIMEType, domain.UserMessage(err)))
		s.notice(domain.UserMessage(err), err)
		return err
	}

	s.teardown("replace")

	inst := &instance{info: domain.NewTrackInfo(src)}
	if err := s.build(inst, src); err != nil {
		s.release(inst)
		s.refreshGauges()

		perr := domain.NewPipelineError("load", domain.CategorySetup, src.Name, err)
		s.logger.Warn("source setup failed",
			slog.String("name", src.Name),
			slog.Any("error", err))
		s.notice(domain.UserMessage(perr), perr)
		return perr
	}

	if s.deps.Tags != nil {
		inst.info = s.deps.Tags.ReadTags(src, inst.info)
	}
	s.active = inst
	s.last = nil

	s.deps.Metrics.ObserveLoad(src.Kind().String())
	s.refreshGauges()
	s.deps.Bus.Publish(domain.NewSourceLoadedEvent(inst.info, inst.url, inst.element.ID()))
	s.transition(domain.TriggerLoad)

	s.logger.Info("source loaded",
		slog.String("name", src.Name),
		slog.String("kind", src.Kind().String()),
		slog.Int64("size", src.Size),
		slog.Uint64("element", uint64(inst.element.ID())))
	return nil
}

func errNothingLoaded() error {
	return domain.NewValidationError("source", nil, domain.MsgNothingLoaded, domain.ErrNoSourceLoaded)
}

func validateSource(src domain.MediaSource) error {
	if !src.Playable() {
		return domain.NewValidationError("mime_type", src.MIMEType, domain.MsgDropRejected, domain.ErrUnsupportedKind)
	}
	if len(src.Data) == 0 {
		return domain.NewValidationError("data", src.Name, domain.MsgSetupFailed, domain.ErrEmptySource)
	}
	return nil
}

// build acquires the URL, creates the element, binds the graph and
// registers the listener, recording each resource on inst as it goes.
func (s *PipelineService) build(inst *instance, src domain.MediaSource) error {
	url, err := s.deps.URLs.Acquire(src)
	if err != nil {
		return fmt.Errorf("acquire object URL: %w", err)
	}
	inst.url = url

	element, err := s.deps.Elements.NewElement(url, src.Kind())
	if err != nil {
		return fmt.Errorf("create element: %w", err)
	}
	inst.element = element

	graph, err := s.deps.Graphs.NewGraph(element)
	if err != nil {
		return fmt.Errorf("build audio graph: %w", err)
	}
	inst.graph = graph

	inst.listener = element.AddListener(s.onElementEvent)

	if err := element.Load(); err != nil {
		return fmt.Errorf("preload element: %w", err)
	}
	return nil
}

// Play starts or resumes playback of the loaded source.
//
// The lock is released while the graph resumes and the element waits for
// playback to be granted. A failure publishes one notice, suspends the
// graph again if this call resumed it and leaves the state unchanged; the
// sampling loop only starts once the element reports that it plays.
//
// A Play issued while an earlier one is still waiting on the same element
// returns nil at once. It does not wait for the earlier call, whose error
// and notice report a rejection.
func (s *PipelineService) Play(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrPipelineClosed
	}

	inst := s.active
	if inst == nil {
		err := errNothingLoaded()
		s.notice(domain.UserMessage(err), err)
		s.mu.Unlock()
		return err
	}

	switch {
	case s.state == domain.StatePlaying || s.pendingPlay == inst:
		s.mu.Unlock()
		return nil
	case !s.state.CanPlay():
		_, err := domain.NextState(s.state, domain.TriggerPlay)
		s.mu.Unlock()
		return err
	}
	s.pendingPlay = inst
	s.mu.Unlock()

	resumed := inst.graph.State() == ports.GraphSuspended
	err := inst.graph.Resume(ctx)
	if err == nil {
		err = inst.element.Play(ctx)
		if err != nil && resumed {
			if serr := inst.graph.Suspend(); serr != nil && !errors.Is(serr, domain.ErrGraphClosed) {
				s.logger.Warn("failed to suspend audio graph", slog.Any("error", serr))
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingPlay == inst {
		s.pendingPlay = nil
	}
	if err == nil {
		return nil
	}
	if s.active != inst {
		s.logger.Debug("play failed on a replaced element", slog.Any("error", err))
		return err
	}

	perr := domain.NewPipelineError("play", domain.CategoryPlayback, inst.info.Name, err)
	s.logger.Warn("play failed", slog.Any("error", err))
	s.notice(domain.MsgPlayFailed, perr)
	return perr
}

// Pause suspends playback. Pausing anything but a playing element is a no-op.
func (s *PipelineService) Pause() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrPipelineClosed
	}

	inst := s.active
	if inst == nil {
		err := errNothingLoaded()
		s.notice(domain.UserMessage(err), err)
		s.mu.Unlock()
		return err
	}
	if s.state != domain.StatePlaying {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// The element reports pause through the listener, which takes mu.
	if err := inst.element.Pause(); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.active != inst {
			return err
		}
		perr := domain.NewPipelineError("pause", domain.CategoryPlayback, inst.info.Name, err)
		s.logger.Warn("pause failed", slog.Any("error", err))
		s.notice(domain.MsgPlayFailed, perr)
		return perr
	}
	return nil
}

// TogglePlayPause pauses a playing element and plays anything else.
func (s *PipelineService) TogglePlayPause(ctx context.Context) error {
	if s.State() == domain.StatePlaying {
		return s.Pause()
	}
	return s.Play(ctx)
}

// State returns the playback state of the current element.
func (s *PipelineService) State() domain.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TrackInfo returns the loaded source description.
// The second result is false when nothing is loaded.
func (s *PipelineService) TrackInfo() (domain.TrackInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return domain.TrackInfo{}, false
	}
	return s.active.info, true
}

// LastSnapshot returns a copy of the most recently published snapshot, or
// nil if nothing was sampled since the last load.
func (s *PipelineService) LastSnapshot() domain.FrequencySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last.Clone()
}

// Ticks returns the number of frames sampled over the service lifetime.
func (s *PipelineService) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop.ticks
}

// Shutdown tears down the current instance and refuses further commands.
// It waits up to the drain timeout for the element's playback goroutine.
// Calling Shutdown again is a no-op.
func (s *PipelineService) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	var done <-chan struct{}
	if s.active != nil {
		done = s.active.element.Done()
	}
	s.teardown("shutdown")
	timeout := s.drainTimeout
	s.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-time.After(timeout):
			s.logger.Warn("element did not exit in time", slog.Duration("timeout", timeout))
			return fmt.Errorf("shutdown: %w", context.DeadlineExceeded)
		}
	}

	s.logger.Debug("pipeline service shut down")
	return nil
}

// teardown releases the active instance in the fixed order and reverts to
// Idle. Must be called with mu held.
func (s *PipelineService) teardown(reason string) {
	inst := s.active
	if inst == nil {
		return
	}

	s.release(inst)
	s.active = nil
	s.pendingPlay = nil
	s.last = nil

	id := inst.element.ID()
	prev := s.state
	s.state = domain.StateIdle

	s.deps.Metrics.ObserveTeardown()
	s.refreshGauges()
	s.deps.Bus.Publish(domain.NewSourceReleasedEvent(inst.url, id))
	if prev != domain.StateIdle {
		s.deps.Bus.Publish(domain.NewStateChangedEvent(prev, domain.StateIdle, id))
	}
	s.deps.Bus.Publish(domain.NewVisualFrameEvent(nil, domain.StateIdle))

	s.logger.Debug("instance torn down",
		slog.String("reason", reason),
		slog.Uint64("element", uint64(id)))
}

// release stops the loop, then removes the listener and closes the
// element, then closes the graph, then releases the URL. Resources that
// were never created are skipped.
func (s *PipelineService) release(inst *instance) {
	s.loop.stop()

	if inst.element != nil {
		if inst.listener != 0 {
			inst.element.RemoveListener(inst.listener)
		}
		if err := inst.element.Close(); err != nil {
			s.logger.Warn("failed to close element", slog.Any("error", err))
		}
	}
	if inst.graph != nil {
		if err := inst.graph.Close(); err != nil && !errors.Is(err, domain.ErrGraphClosed) {
			s.logger.Warn("failed to close audio graph", slog.Any("error", err))
		}
	}
	s.deps.URLs.Release(inst.url)
}

// onElementEvent is the single dispatch point for element lifecycle events.
func (s *PipelineService) onElementEvent(id domain.ElementID, event domain.ElementEvent, eventErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.element.ID() != id {
		s.logger.Debug("dropping event from stale element",
			slog.String("event", event.String()),
			slog.Uint64("element", uint64(id)))
		return
	}

	if event == domain.ElementError && s.state != domain.StateErrored {
		perr := domain.NewPipelineError("element", domain.CategoryPlayback, s.active.info.Name, eventErr)
		s.logger.Warn("element error", slog.Any("error", eventErr))
		s.notice(domain.MsgElementFailed, perr)
	}

	s.transition(event.Trigger())
}

// transition applies trigger to the state machine and runs the side
// effects of entering the new state. Must be called with mu held.
func (s *PipelineService) transition(trigger domain.Trigger) {
	prev := s.state
	next, err := domain.NextState(prev, trigger)
	if err != nil {
		s.logger.Debug("ignoring trigger", slog.Any("error", err))
		return
	}
	if next == prev {
		return
	}
	s.state = next

	inst := s.active
	if next.Sampling() {
		if inst.graph.State() == ports.GraphSuspended {
			if err := inst.graph.Resume(context.Background()); err != nil {
				s.logger.Warn("failed to resume audio graph", slog.Any("error", err))
			}
		}
		s.loop.start(inst.element.ID(), inst.graph)
	} else {
		s.loop.stop()
	}
	s.refreshGauges()

	s.logger.Debug("state changed",
		slog.String("from", prev.String()),
		slog.String("to", next.String()))
	s.deps.Bus.Publish(domain.NewStateChangedEvent(prev, next, inst.elementID()))
	s.deps.Bus.Publish(domain.NewVisualFrameEvent(nil, next))
}

// onFrame is the sampling loop tick.
func (s *PipelineService) onFrame(generation uint64, _ time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loop.accepts(generation, s.active.elementID()) || s.state != domain.StatePlaying {
		return
	}

	snapshot := s.loop.sample()
	s.last = snapshot
	s.deps.Metrics.ObserveFrame()
	s.deps.Bus.Publish(domain.NewVisualFrameEvent(snapshot, s.state))

	s.loop.arm()
}

// notice publishes one user-visible message and reports unexpected errors.
// Must be called with mu held.
func (s *PipelineService) notice(message string, err error) {
	if message == "" {
		return
	}
	category := domain.CategoryOf(err)
	s.deps.Metrics.ObserveNotice(category.String())
	s.deps.Bus.Publish(domain.NewNoticeEvent(message, category, err))

	if s.deps.Reporter != nil && category != domain.CategoryValidation {
		s.deps.Reporter.Report(err, map[string]string{"component": "pipeline"})
	}
}

func (s *PipelineService) refreshGauges() {
	elements, graphs := 0, 0
	if s.active != nil {
		elements, graphs = 1, 1
	}
	loops := 0
	if s.loop.running {
		loops = 1
	}
	s.deps.Metrics.SetLive("url", s.deps.URLs.Live())
	s.deps.Metrics.SetLive("element", elements)
	s.deps.Metrics.SetLive("graph", graphs)
	s.deps.Metrics.SetLive("loop", loops)
}

type noopMetrics struct{}

func (noopMetrics) SetLive(string, int)     {}
func (noopMetrics) ObserveLoad(string)      {}
func (noopMetrics) ObserveTeardown()        {}
func (noopMetrics) ObserveRejection(string) {}
func (noopMetrics) ObserveFrame()           {}
func (noopMetrics) ObserveNotice(string)    {}
