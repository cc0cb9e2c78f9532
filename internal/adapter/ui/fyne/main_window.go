package fyne

import (
	"log/slog"
	"sync"
	"time"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/tejashwikalptaru/truestream/internal/adapter/ui/fyne/widgets"
	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
	"github.com/tejashwikalptaru/truestream/res"
)

const (
	noTrackText  = "No file loaded"
	marqueeWidth = 32

	// marqueeEvery is the number of animation frames between marquee steps.
	marqueeEvery = 8
)

// WindowConfig sizes the main window and its animation.
type WindowConfig struct {
	Title  string
	Width  float32
	Height float32

	// FPS is the redraw rate of the synthwave scene
	FPS int

	// Seed fixes the particle layout
	Seed int64
}

// DefaultWindowConfig returns the default window configuration.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Title:  "TrueStream",
		Width:  960,
		Height: 640,
		FPS:    30,
		Seed:   42,
	}
}

// MainWindow is the main UI window implementing ports.View.
//
// The MainWindow follows the MVP pattern:
// - It's a "dumb view" that just displays data
// - All business logic is in the Presenter
// - User interactions are forwarded to the Presenter
//
// View methods may be called from any goroutine; widget updates are
// marshalled onto the UI goroutine with fyne.Do.
type MainWindow struct {
	app    fyneapp.App
	window fyneapp.Window
	logger *slog.Logger
	cfg    WindowConfig

	// UI components
	scene         *widgets.Synthwave
	playButton    *widget.Button
	trackName     *widgets.DoubleTapLabel
	sizeLabel     *widget.Label
	analysisLabel *widget.Label
	busy          *widget.ProgressBarInfinite
	urlEntry      *widget.Entry
	codeEntry     *widget.Entry
	tabs          *container.AppTabs

	// State, only touched on the UI goroutine
	marquee *widgets.Marquee

	// Lifecycle management
	stopAnimation chan struct{}
	animating     sync.Once
	closeOnce     sync.Once

	// Presenter (set after construction)
	presenter *Presenter
}

// NewMainWindow creates a new main window.
func NewMainWindow(app fyneapp.App, logger *slog.Logger, cfg WindowConfig) *MainWindow {
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultWindowConfig().FPS
	}

	w := &MainWindow{
		app:           app,
		logger:        logger.With(slog.String("component", "main_window")),
		cfg:           cfg,
		marquee:       widgets.NewMarquee(noTrackText, marqueeWidth),
		stopAnimation: make(chan struct{}),
	}

	w.window = app.NewWindow(cfg.Title)
	w.buildUI()

	w.window.Resize(fyneapp.NewSize(cfg.Width, cfg.Height))
	w.window.SetOnDropped(w.handleDrop)

	return w
}

// SetPresenter connects the presenter to this view.
// This must be called before showing the window.
func (w *MainWindow) SetPresenter(presenter *Presenter) {
	w.presenter = presenter
	w.wirePresenterHandlers()
	w.addShortcuts()
}

// buildUI constructs the UI components.
func (w *MainWindow) buildUI() {
	w.scene = widgets.NewSynthwave(w.cfg.Seed)

	// Control panel
	w.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), nil)
	w.playButton.Disable()

	w.trackName = widgets.NewDoubleTapLabel(noTrackText, nil)
	w.trackName.Truncation = fyneapp.TextTruncateClip
	w.trackName.TextStyle = fyneapp.TextStyle{
		Bold:   true,
		Italic: true,
	}
	w.sizeLabel = widget.NewLabel("")
	w.analysisLabel = widget.NewLabel(analysisText(false))

	w.busy = widget.NewProgressBarInfinite()
	w.busy.Stop()
	w.busy.Hide()

	info := container.NewVBox(w.trackName, container.NewHBox(w.sizeLabel, w.analysisLabel))
	controls := container.NewBorder(nil, w.busy, w.playButton, nil, info)

	// Source selector
	w.urlEntry = widget.NewEntry()
	w.urlEntry.SetPlaceHolder("https://example.com/track.mp3")
	w.codeEntry = widget.NewMultiLineEntry()
	w.codeEntry.SetPlaceHolder(`note("c e g b").s("sawtooth")`)
	w.codeEntry.SetMinRowsVisible(4)

	w.tabs = container.NewAppTabs(
		container.NewTabItemWithIcon("File", theme.FileIcon(), container.NewVBox(
			widget.NewButtonWithIcon("Choose audio or video file", theme.FolderOpenIcon(), w.handleOpenFile),
			widget.NewLabel("or drop a file anywhere on the window"),
		)),
		container.NewTabItemWithIcon("URL", theme.DownloadIcon(), container.NewBorder(nil, nil, nil,
			widget.NewButton("Load", w.handleLoadURL), w.urlEntry)),
		container.NewTabItemWithIcon("Live Code", theme.MediaMusicIcon(), container.NewBorder(nil,
			widget.NewButton("Run", w.handleRunLiveCode), nil, nil, w.codeEntry)),
	)

	stage := widgets.NewTappableStack(w.togglePlayback, w.showSourceMenu, w.scene)
	w.window.SetContent(container.NewBorder(nil, container.NewVBox(controls, w.tabs), nil, nil, stage))

	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
}

// wirePresenterHandlers connects UI events to presenter handlers.
func (w *MainWindow) wirePresenterHandlers() {
	if w.presenter == nil {
		return
	}

	w.playButton.OnTapped = w.togglePlayback
	w.trackName.SetOnDoubleTapped(w.togglePlayback)
	w.urlEntry.OnSubmitted = func(string) { w.handleLoadURL() }
}

// createMenu creates the application menu.
func (w *MainWindow) createMenu() []*fyneapp.Menu {
	separator := fyneapp.NewMenuItemSeparator()

	openFile := fyneapp.NewMenuItem("Open File…", w.handleOpenFile)
	openURL := fyneapp.NewMenuItem("Open URL…", w.handleOpenURL)
	exitMenu := fyneapp.NewMenuItem("Exit", func() {
		w.window.Close()
	})
	fileMenu := fyneapp.NewMenu("File", openFile, openURL, separator, exitMenu)

	about := fyneapp.NewMenuItem("About", w.showAbout)
	helpMenu := fyneapp.NewMenu("Help", about)

	return []*fyneapp.Menu{fileMenu, helpMenu}
}

func (w *MainWindow) togglePlayback() {
	if w.presenter == nil {
		return
	}
	w.presenter.OnPlayPauseClicked()
}

// handleOpenFile handles the "Open File" action.
func (w *MainWindow) handleOpenFile() {
	if w.presenter == nil {
		return
	}

	dlg := NewFileDialog(w.window, w.presenter.MediaExtensions(), w.presenter.OnFileChosen, w.logger)
	dlg.Show()
}

// handleOpenURL asks for a URL in a dialog.
func (w *MainWindow) handleOpenURL() {
	if w.presenter == nil {
		return
	}

	dlg := NewURLDialog(w.window, func(rawURL string) {
		w.urlEntry.SetText(rawURL)
		w.tabs.SelectIndex(1)
		w.presenter.OnURLSubmitted(rawURL)
	})
	dlg.Show()
}

func (w *MainWindow) handleLoadURL() {
	if w.presenter == nil {
		return
	}
	w.presenter.OnURLSubmitted(w.urlEntry.Text)
}

func (w *MainWindow) handleRunLiveCode() {
	if w.presenter == nil {
		return
	}
	w.presenter.OnLiveCodeSubmitted(w.codeEntry.Text)
}

// handleDrop forwards the local files dropped on the window.
func (w *MainWindow) handleDrop(_ fyneapp.Position, uris []fyneapp.URI) {
	if w.presenter == nil || len(uris) == 0 {
		return
	}

	paths := make([]string, 0, len(uris))
	for _, u := range uris {
		if u.Scheme() != "file" {
			w.logger.Debug("ignoring dropped uri", slog.String("uri", u.String()))
			continue
		}
		paths = append(paths, u.Path())
	}
	if len(paths) == 0 {
		w.ShowNotice(domain.MsgDropRejected)
		return
	}
	w.presenter.OnFilesDropped(paths)
}

func (w *MainWindow) showSourceMenu(pe *fyneapp.PointEvent) {
	menu := fyneapp.NewMenu("",
		fyneapp.NewMenuItem("Open File…", w.handleOpenFile),
		fyneapp.NewMenuItem("Open URL…", w.handleOpenURL),
	)
	widget.ShowPopUpMenuAtPosition(menu, w.window.Canvas(), pe.AbsolutePosition)
}

func (w *MainWindow) showAbout() {
	content := widget.NewRichTextFromMarkdown(res.AboutContent)
	content.Wrapping = fyneapp.TextWrapWord
	dialog.ShowCustom("About "+w.cfg.Title, "Close", content, w.window)
}

// addShortcuts adds keyboard shortcuts.
func (w *MainWindow) addShortcuts() {
	w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyneapp.KeyO,
		Modifier: fyneapp.KeyModifierShortcutDefault,
	}, func(fyneapp.Shortcut) {
		w.handleOpenFile()
	})

	w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyneapp.KeyP,
		Modifier: fyneapp.KeyModifierShortcutDefault,
	}, func(fyneapp.Shortcut) {
		w.togglePlayback()
	})
}

// startAnimation drives the scene at the configured frame rate until Close.
// This should only be called after the Fyne app is fully initialized.
func (w *MainWindow) startAnimation() {
	w.animating.Do(func() {
		go func() {
			ticker := time.NewTicker(time.Second / time.Duration(w.cfg.FPS))
			defer ticker.Stop()

			start := time.Now()
			frame := 0
			for {
				select {
				case <-ticker.C:
					frame++
					elapsed := time.Since(start)
					rotate := frame%marqueeEvery == 0
					fyneapp.Do(func() {
						w.scene.Tick(elapsed)
						if rotate && w.marquee.Scrolls() {
							w.trackName.SetText(w.marquee.Rotate())
						}
					})
				case <-w.stopAnimation:
					return
				}
			}
		}()
	})
}

// ShowAndRun shows the window and runs the application.
func (w *MainWindow) ShowAndRun() {
	w.app.Lifecycle().SetOnStarted(w.startAnimation)
	w.window.ShowAndRun()
}

// Close closes the window and stops the animation.
// It's safe to call multiple times (idempotent).
func (w *MainWindow) Close() {
	w.closeOnce.Do(func() {
		close(w.stopAnimation)
		fyneapp.Do(w.window.Close)
	})
}

// GetWindow returns the underlying Fyne window.
func (w *MainWindow) GetWindow() fyneapp.Window {
	return w.window
}

// ports.View implementation

// SetTrackInfo shows the loaded source in the control panel.
func (w *MainWindow) SetTrackInfo(info domain.TrackInfo) {
	fyneapp.Do(func() {
		w.marquee.SetText(info.DisplayName())
		w.trackName.SetText(w.marquee.Rotate())
		w.sizeLabel.SetText(info.SizeMB())
		w.playButton.Enable()
	})
}

// ClearTrackInfo resets the control panel.
func (w *MainWindow) ClearTrackInfo() {
	w.scene.Reset()
	fyneapp.Do(func() {
		w.marquee.SetText(noTrackText)
		w.trackName.SetText(noTrackText)
		w.sizeLabel.SetText("")
		w.playButton.Disable()
	})
}

// SetPlaying updates the play/pause button.
func (w *MainWindow) SetPlaying(playing bool) {
	fyneapp.Do(func() {
		if playing {
			w.playButton.SetIcon(theme.MediaPauseIcon())
		} else {
			w.playButton.SetIcon(theme.MediaPlayIcon())
		}
	})
}

// SetAnalysisLive updates the analysis indicator.
func (w *MainWindow) SetAnalysisLive(live bool) {
	fyneapp.Do(func() {
		w.analysisLabel.SetText(analysisText(live))
	})
}

// RenderFrame hands a visual frame to the scene; the next animation tick draws it.
func (w *MainWindow) RenderFrame(frame domain.VisualFrameEvent) {
	w.scene.Apply(frame)
}

// SetBusy shows or hides the loading indicator.
func (w *MainWindow) SetBusy(busy bool) {
	fyneapp.Do(func() {
		if busy {
			w.busy.Show()
			w.busy.Start()
		} else {
			w.busy.Stop()
			w.busy.Hide()
		}
	})
}

// ShowNotice displays a message in a dialog over the window.
func (w *MainWindow) ShowNotice(message string) {
	fyneapp.Do(func() {
		dialog.ShowInformation(w.cfg.Title, message, w.window)
	})
}

func analysisText(live bool) string {
	if live {
		return "Audio Analysis: LIVE"
	}
	return "Audio Analysis: STANDBY"
}

// Verify ports.View implementation
var _ ports.View = (*MainWindow)(nil)
