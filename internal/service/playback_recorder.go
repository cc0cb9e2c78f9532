package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// Playback telemetry names.
const (
	AudioEventPlayed          = "played"
	VisualizationEventStarted = "started"
	MetricFramesSampled       = "frames_sampled"
)

// playbackRecorder follows the pipeline on the bus and reports playback
// activity: a visualization event when a source first plays, and when a
// played source is released, its playing time and the frames sampled.
//
// Bus handlers run under the pipeline lock, so they only update counters
// and hand telemetry calls to the detached task group.
type playbackRecorder struct {
	telemetry ports.Telemetry
	bus       ports.EventBus
	tasks     *detachedTasks
	subs      []domain.SubscriptionID

	mu           sync.Mutex
	element      domain.ElementID
	info         domain.TrackInfo
	started      bool
	playingSince time.Time
	listened     time.Duration
	frames       int
	sources      int
}

func newPlaybackRecorder(telemetry ports.Telemetry, bus ports.EventBus, tasks *detachedTasks) *playbackRecorder {
	r := &playbackRecorder{
		telemetry: telemetry,
		bus:       bus,
		tasks:     tasks,
	}
	r.subs = []domain.SubscriptionID{
		bus.Subscribe(domain.EventSourceLoaded, r.onLoaded),
		bus.Subscribe(domain.EventStateChanged, r.onStateChanged),
		bus.Subscribe(domain.EventVisualFrame, r.onFrame),
		bus.Subscribe(domain.EventSourceReleased, r.onReleased),
	}
	return r
}

func (r *playbackRecorder) close() {
	for _, id := range r.subs {
		r.bus.Unsubscribe(id)
	}
	r.subs = nil
}

func (r *playbackRecorder) onLoaded(event domain.Event) {
	e, ok := event.(domain.SourceLoadedEvent)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.element = e.Element
	r.info = e.Info
	r.started = false
	r.playingSince = time.Time{}
	r.listened = 0
	r.frames = 0
	r.sources++
}

func (r *playbackRecorder) onStateChanged(event domain.Event) {
	e, ok := event.(domain.StateChangedEvent)
	if !ok {
		return
	}
	r.mu.Lock()
	if e.Element != r.element || r.element == 0 {
		r.mu.Unlock()
		return
	}

	if e.From == domain.StatePlaying && !r.playingSince.IsZero() {
		r.listened += e.Timestamp().Sub(r.playingSince)
		r.playingSince = time.Time{}
	}
	if e.To != domain.StatePlaying {
		r.mu.Unlock()
		return
	}
	r.playingSince = e.Timestamp()
	first := !r.started
	r.started = true
	params := map[string]any{
		"name": r.info.Name,
		"kind": r.info.Kind.String(),
	}
	r.mu.Unlock()

	if first {
		r.record("visualization:"+VisualizationEventStarted, func(ctx context.Context) error {
			return r.telemetry.RecordVisualizationEvent(ctx, VisualizationEventStarted, params)
		})
	}
}

func (r *playbackRecorder) onFrame(event domain.Event) {
	e, ok := event.(domain.VisualFrameEvent)
	if !ok || e.Snapshot == nil {
		return
	}
	r.mu.Lock()
	r.frames++
	r.mu.Unlock()
}

func (r *playbackRecorder) onReleased(event domain.Event) {
	e, ok := event.(domain.SourceReleasedEvent)
	if !ok {
		return
	}
	r.mu.Lock()
	if e.Element != r.element || r.element == 0 {
		r.mu.Unlock()
		return
	}
	if !r.playingSince.IsZero() {
		r.listened += e.Timestamp().Sub(r.playingSince)
	}
	played, format, listened := r.started, r.info.MIMEType, r.listened
	frames, step := r.frames, r.sources
	r.element = 0
	r.playingSince = time.Time{}
	r.mu.Unlock()

	if !played {
		return
	}
	r.record("audio:"+AudioEventPlayed, func(ctx context.Context) error {
		return r.telemetry.RecordAudioEvent(ctx, AudioEventPlayed, format, listened)
	})
	r.record("metric:"+MetricFramesSampled, func(ctx context.Context) error {
		return r.telemetry.RecordMetric(ctx, MetricFramesSampled, float64(frames), step)
	})
}

func (r *playbackRecorder) record(name string, fn func(ctx context.Context) error) {
	r.tasks.Go("telemetry:"+name, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("record %s: %w", name, err)
		}
		return nil
	})
}
