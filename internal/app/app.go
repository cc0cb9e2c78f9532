// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tejashwikalptaru/truestream/internal/adapter/audio/graph"
	"github.com/tejashwikalptaru/truestream/internal/adapter/clock"
	"github.com/tejashwikalptaru/truestream/internal/adapter/collaborator/aiprocess"
	"github.com/tejashwikalptaru/truestream/internal/adapter/collaborator/livecode"
	"github.com/tejashwikalptaru/truestream/internal/adapter/collaborator/telemetry"
	"github.com/tejashwikalptaru/truestream/internal/adapter/decoder"
	"github.com/tejashwikalptaru/truestream/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/truestream/internal/adapter/fetch"
	"github.com/tejashwikalptaru/truestream/internal/adapter/media"
	"github.com/tejashwikalptaru/truestream/internal/adapter/metadata"
	"github.com/tejashwikalptaru/truestream/internal/adapter/objecturl"
	"github.com/tejashwikalptaru/truestream/internal/adapter/reporting"
	fyneui "github.com/tejashwikalptaru/truestream/internal/adapter/ui/fyne"
	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/httpclient"
	"github.com/tejashwikalptaru/truestream/internal/logger"
	"github.com/tejashwikalptaru/truestream/internal/metrics"
	"github.com/tejashwikalptaru/truestream/internal/ports"
	"github.com/tejashwikalptaru/truestream/internal/service"
	"golang.org/x/sync/errgroup"
)

// Shutdown waits for pending error reports and collaborator calls.
const (
	reporterFlushTimeout     = 2 * time.Second
	collaboratorDrainTimeout = 2 * time.Second
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for main.go
type Application struct {
	// Core dependencies
	logger  *slog.Logger
	config  Config
	fyneApp fyne.App // nil when headless

	// Infrastructure
	eventBus *eventbus.SyncEventBus
	metrics  *metrics.Metrics
	http     *httpclient.Client
	fetcher  *fetch.Fetcher
	reporter *reporting.Reporter
	urls     *objecturl.Manager
	ticker   *clock.Ticker

	// Services
	pipeline *service.PipelineService
	sources  *service.SourceService

	// UI
	presenter  *fyneui.Presenter
	mainWindow *fyneui.MainWindow

	windowClosed atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(config Config) (*Application, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{config: config}

	// Step 1: Create logger
	level, _ := logger.ParseLevel(config.LogLevel)
	app.logger = logger.NewLogger(logger.Config{
		Level:  level,
		Format: config.LogFormat,
	})
	app.logger.Info("initializing application",
		slog.String("app_id", config.AppID),
		slog.String("version", GetVersionInfo().FullString()),
		slog.Bool("headless", config.Headless))

	// Step 2: Create an event bus. Visual frames are too frequent to trace.
	app.eventBus = eventbus.NewSyncEventBus()
	app.eventBus.SetLogger(app.logger.With(slog.String("component", "eventbus")))
	app.eventBus.SetQuiet(domain.EventVisualFrame, true)

	// Step 3: Observability
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	app.metrics = m

	app.reporter, err = reporting.NewReporter(app.logger, reporting.Config{
		DSN:         config.Sentry.DSN,
		Environment: config.Sentry.Environment,
		Release:     GetVersionInfo().Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create error reporter: %w", err)
	}

	// Step 4: Outgoing HTTP and the collaborators built on it
	app.http = httpclient.New(&httpclient.Config{
		DefaultTimeout: config.HTTP.Timeout,
		UserAgent:      config.HTTP.UserAgent,
	})
	app.http.SetAfterResponseHook(app.observeHTTP)

	app.fetcher = fetch.NewFetcher(app.logger, app.http, fetch.Config{
		MaxSize:  config.Fetch.MaxSize,
		CacheTTL: config.Fetch.CacheTTL,
	})
	tele := telemetry.NewClient(app.logger, app.http, telemetry.Config{
		APIKey:        config.Telemetry.APIKey,
		Endpoint:      config.Telemetry.Endpoint,
		Workspace:     config.Telemetry.Workspace,
		Project:       config.Telemetry.Project,
		RatePerSecond: config.Telemetry.RatePerSecond,
	})
	ai := aiprocess.NewClient(app.logger, app.http, aiprocess.Config{
		APIKey:   config.AI.APIKey,
		Endpoint: config.AI.Endpoint,
	})
	coder := livecode.NewClient(app.logger, app.http, livecode.Config{
		Endpoint: config.LiveCode.Endpoint,
	})

	// Step 5: Media pipeline adapters
	app.urls = objecturl.NewManager(app.logger)
	elements := media.NewFactory(
		app.logger,
		app.urls,
		decoder.NewDefaultRegistry(app.logger),
		media.NewSurface(),
	)

	newOutput := graph.DeviceOutputFactory(app.logger)
	if config.NullAudio {
		newOutput = func() (ports.AudioOutput, error) {
			return graph.NewNullOutput(), nil
		}
	}
	graphs, err := graph.NewFactory(app.logger, config.Pipeline.Analyser(), newOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio graph factory: %w", err)
	}

	app.ticker = clock.NewTicker(app.logger, config.Pipeline.FrameInterval)

	// Step 6: Create services (with dependency injection)
	app.pipeline = service.NewPipelineService(app.logger, service.PipelineDeps{
		URLs:     app.urls,
		Elements: elements,
		Graphs:   graphs,
		Frames:   app.ticker,
		Bus:      app.eventBus,
		Tags:     metadata.NewReader(app.logger),
		Metrics:  app.metrics,
		Reporter: app.reporter,
	})
	app.pipeline.SetDrainTimeout(config.Pipeline.DrainTimeout)

	app.sources = service.NewSourceService(app.logger, app.pipeline, service.SourceDeps{
		Fetcher:             app.fetcher,
		Telemetry:           tele,
		AI:                  ai,
		LiveCoder:           coder,
		Bus:                 app.eventBus,
		CollaboratorTimeout: config.Pipeline.CollaboratorTimeout,
	})

	if config.Headless {
		return app, nil
	}

	// Step 7: Create UI
	if config.TestFyneApp != nil {
		app.fyneApp = config.TestFyneApp
	} else {
		app.fyneApp = fyneapp.NewWithID(config.AppID)
	}

	app.mainWindow = fyneui.NewMainWindow(app.fyneApp, app.logger, fyneui.WindowConfig{
		Title:  config.AppName,
		Width:  config.Window.Width,
		Height: config.Window.Height,
		FPS:    config.Window.FPS,
		Seed:   config.Window.Seed,
	})

	// Step 8: Create Presenter and wire with UI
	app.presenter = fyneui.NewPresenter(
		app.logger,
		app.pipeline,
		app.sources,
		app.eventBus,
		app.mainWindow,
	)
	app.mainWindow.SetPresenter(app.presenter)

	return app, nil
}

func (a *Application) observeHTTP(req *http.Request, resp *http.Response, err error, took time.Duration) {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	a.metrics.ObserveHTTP(req.URL.Host, status, err, took)
}

// Run starts the application and blocks until the window is closed, the
// headless track finishes or ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	a.logger.Info("TrueStream started")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	if a.config.MetricsAddr != "" {
		g.Go(func() error {
			if err := a.metrics.Serve(gctx, a.logger, a.config.MetricsAddr); err != nil {
				return fmt.Errorf("metrics endpoint: %w", err)
			}
			return nil
		})
	}

	if a.config.Headless {
		g.Go(func() error {
			defer cancel()
			return a.runHeadless(gctx)
		})
		return g.Wait()
	}

	g.Go(func() error {
		<-gctx.Done()
		if !a.windowClosed.Load() {
			a.logger.Info("stop requested, closing window")
			a.fyneApp.Quit()
		}
		return nil
	})

	switch {
	case a.config.File != "":
		a.presenter.OnFileChosen(a.config.File)
	case a.config.URL != "":
		a.presenter.OnURLSubmitted(a.config.URL)
	}

	// Show and run UI (blocks until the window is closed)
	a.mainWindow.ShowAndRun()
	a.windowClosed.Store(true)
	cancel()

	return g.Wait()
}

// runHeadless plays the configured source once without a window.
func (a *Application) runHeadless(ctx context.Context) error {
	finished := make(chan domain.PlaybackState, 1)
	stateSub := a.eventBus.Subscribe(domain.EventStateChanged, func(event domain.Event) {
		e, ok := event.(domain.StateChangedEvent)
		if !ok || !e.To.IsTerminal() {
			return
		}
		select {
		case finished <- e.To:
		default:
		}
	})
	defer a.eventBus.Unsubscribe(stateSub)

	noticeSub := a.eventBus.Subscribe(domain.EventNotice, func(event domain.Event) {
		if e, ok := event.(domain.NoticeEvent); ok {
			a.logger.Warn("notice", slog.String("message", e.Message), slog.String("category", e.Category.String()))
		}
	})
	defer a.eventBus.Unsubscribe(noticeSub)

	var err error
	if a.config.File != "" {
		err = a.sources.LoadFile(a.config.File)
	} else {
		err = a.sources.LoadURL(ctx, a.config.URL)
	}
	if err != nil {
		return fmt.Errorf("load source: %w", err)
	}

	if err := a.pipeline.Play(ctx); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}
	if info, ok := a.pipeline.TrackInfo(); ok {
		a.logger.Info("playing",
			slog.String("name", info.DisplayName()),
			slog.String("size", info.SizeMB()))
	}

	select {
	case <-ctx.Done():
	case state := <-finished:
		a.logger.Info("playback finished", slog.String("state", state.String()))
	}
	return nil
}

// Shutdown gracefully shuts down the application.
// It's safe to call multiple times (idempotent).
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.shutdown()
	})
	return a.shutdownErr
}

func (a *Application) shutdown() error {
	a.logger.Info("shutting down application")
	var errs []error

	// UI first so nothing issues new commands
	if a.presenter != nil {
		a.presenter.Shutdown()
	}
	if a.mainWindow != nil {
		a.mainWindow.Close()
	}

	// Pipeline before sources so the last release still reaches telemetry
	if err := a.pipeline.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline: %w", err))
	}
	if !a.sources.Shutdown(collaboratorDrainTimeout) {
		a.logger.Warn("collaborator calls still running at shutdown")
	}
	if err := a.ticker.Close(); err != nil {
		errs = append(errs, fmt.Errorf("frame ticker: %w", err))
	}

	acquired, released := a.urls.Stats()
	a.logger.Debug("object urls", slog.Uint64("acquired", acquired), slog.Uint64("released", released))

	a.fetcher.Flush()
	a.http.Close()
	if !a.reporter.Flush(reporterFlushTimeout) {
		a.logger.Warn("error reports not flushed")
	}
	if err := a.eventBus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("event bus: %w", err))
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// Services returns the pipeline and source services.
func (a *Application) Services() (*service.PipelineService, *service.SourceService) {
	return a.pipeline, a.sources
}

// GetEventBus returns the application event bus.
func (a *Application) GetEventBus() ports.EventBus {
	return a.eventBus
}

// GetFyneApp returns the Fyne app, nil in headless mode.
func (a *Application) GetFyneApp() fyne.App {
	return a.fyneApp
}

// Metrics returns the application metrics.
func (a *Application) Metrics() *metrics.Metrics {
	return a.metrics
}
