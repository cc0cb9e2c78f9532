// Package fyne provides the Fyne UI adapter of TrueStream: the main window,
// the synthwave widget and the presenter that connects them to the services.
package fyne

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
	"github.com/tejashwikalptaru/truestream/internal/service"
)

// Presenter implements the Presenter pattern (MVP architecture).
// It maps bus events onto the view and turns view commands into service calls.
//
// Event handlers run on the publishing goroutine, often with the pipeline
// lock held, so they only touch the view. Commands run on their own
// goroutines because a load or play may block on decoding or device start.
type Presenter struct {
	logger *slog.Logger

	pipeline *service.PipelineService
	sources  *service.SourceService
	bus      ports.EventBus
	view     ports.View

	subscriptions []domain.SubscriptionID

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	busy         int
	closed       bool
	shutdownOnce sync.Once
}

// NewPresenter creates a presenter and syncs the view with the pipeline.
func NewPresenter(
	logger *slog.Logger,
	pipeline *service.PipelineService,
	sources *service.SourceService,
	bus ports.EventBus,
	view ports.View,
) *Presenter {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Presenter{
		logger:   logger.With(slog.String("component", "presenter")),
		pipeline: pipeline,
		sources:  sources,
		bus:      bus,
		view:     view,
		ctx:      ctx,
		cancel:   cancel,
	}

	p.subscribeToEvents()
	p.syncInitialState()

	return p
}

func (p *Presenter) subscribeToEvents() {
	subscriptions := map[domain.EventType]domain.EventHandler{
		domain.EventSourceLoaded:   p.onSourceLoaded,
		domain.EventSourceReleased: p.onSourceReleased,
		domain.EventStateChanged:   p.onStateChanged,
		domain.EventVisualFrame:    p.onVisualFrame,
		domain.EventNotice:         p.onNotice,
	}

	for eventType, handler := range subscriptions {
		p.subscriptions = append(p.subscriptions, p.bus.Subscribe(eventType, handler))
	}
}

func (p *Presenter) syncInitialState() {
	if info, ok := p.pipeline.TrackInfo(); ok {
		p.view.SetTrackInfo(info)
	} else {
		p.view.ClearTrackInfo()
	}

	state := p.pipeline.State()
	p.view.SetPlaying(state == domain.StatePlaying)
	p.view.SetAnalysisLive(state.Sampling())
	p.view.SetBusy(false)
}

// Event handlers

func (p *Presenter) onSourceLoaded(event domain.Event) {
	e, ok := event.(domain.SourceLoadedEvent)
	if !ok {
		return
	}
	p.view.SetTrackInfo(e.Info)
}

func (p *Presenter) onSourceReleased(domain.Event) {
	p.view.ClearTrackInfo()
	p.view.SetPlaying(false)
	p.view.SetAnalysisLive(false)
}

func (p *Presenter) onStateChanged(event domain.Event) {
	e, ok := event.(domain.StateChangedEvent)
	if !ok {
		return
	}
	p.view.SetPlaying(e.To == domain.StatePlaying)
	p.view.SetAnalysisLive(e.To.Sampling())
}

func (p *Presenter) onVisualFrame(event domain.Event) {
	e, ok := event.(domain.VisualFrameEvent)
	if !ok {
		return
	}
	p.view.RenderFrame(e)
}

func (p *Presenter) onNotice(event domain.Event) {
	e, ok := event.(domain.NoticeEvent)
	if !ok || e.Message == "" {
		return
	}
	p.view.ShowNotice(e.Message)
}

// UI command handlers (called by the view)

// OnPlayPauseClicked toggles playback of the loaded source.
func (p *Presenter) OnPlayPauseClicked() {
	p.run("play_pause", false, func(ctx context.Context) error {
		return p.pipeline.TogglePlayPause(ctx)
	})
}

// OnFileChosen loads a file picked in the file dialog.
func (p *Presenter) OnFileChosen(path string) {
	p.run("load_file", true, func(context.Context) error {
		return p.sources.LoadFile(path)
	})
}

// OnFilesDropped loads the first of the files dropped on the window.
func (p *Presenter) OnFilesDropped(paths []string) {
	p.run("drop_files", true, func(context.Context) error {
		return p.sources.DropFiles(paths)
	})
}

// OnURLSubmitted fetches and loads remote audio.
func (p *Presenter) OnURLSubmitted(rawURL string) {
	p.run("load_url", true, func(ctx context.Context) error {
		return p.sources.LoadURL(ctx, rawURL)
	})
}

// OnLiveCodeSubmitted evaluates live code and loads what it renders.
func (p *Presenter) OnLiveCodeSubmitted(code string) {
	p.run("load_livecode", true, func(ctx context.Context) error {
		return p.sources.LoadLiveCode(ctx, code)
	})
}

// MediaExtensions lists the file extensions the file dialog offers.
func (p *Presenter) MediaExtensions() []string {
	return p.sources.Extensions()
}

// run executes a command in the background. The services publish their
// own notices, so a failure is only logged here.
func (p *Presenter) run(name string, busy bool, fn func(ctx context.Context) error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	if busy {
		p.setBusy(1)
	}
	go func() {
		defer p.wg.Done()
		if busy {
			defer p.setBusy(-1)
		}

		if err := fn(p.ctx); err != nil {
			p.logger.Debug("command failed", slog.String("command", name), slog.Any("error", err))
		}
	}()
}

func (p *Presenter) setBusy(delta int) {
	p.mu.Lock()
	before := p.busy
	p.busy += delta
	after := p.busy
	p.mu.Unlock()

	if (before == 0) != (after == 0) {
		p.view.SetBusy(after > 0)
	}
}

// wait blocks until every command started so far has returned.
func (p *Presenter) wait() {
	p.wg.Wait()
}

// Shutdown cancels running commands, waits for them and detaches from the bus.
// It's safe to call multiple times (idempotent).
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		p.cancel()
		p.wg.Wait()

		for _, id := range p.subscriptions {
			p.bus.Unsubscribe(id)
		}
	})
}
