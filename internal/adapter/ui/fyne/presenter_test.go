package fyne

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/truestream/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/truestream/internal/adapter/clock"
	"github.com/tejashwikalptaru/truestream/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/truestream/internal/adapter/objecturl"
	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/logger"
	"github.com/tejashwikalptaru/truestream/internal/ports"
	"github.com/tejashwikalptaru/truestream/internal/service"
	"github.com/tejashwikalptaru/truestream/internal/testutil"
)

// viewState is what a fakeView has been told so far.
type viewState struct {
	tracks  []domain.TrackInfo
	cleared int
	playing []bool
	live    []bool
	frames  []domain.VisualFrameEvent
	busy    []bool
	notices []string
}

// fakeView records every call the presenter makes.
type fakeView struct {
	mu sync.Mutex
	viewState
}

func (v *fakeView) SetTrackInfo(info domain.TrackInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tracks = append(v.tracks, info)
}

func (v *fakeView) ClearTrackInfo() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cleared++
}

func (v *fakeView) SetPlaying(playing bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = append(v.playing, playing)
}

func (v *fakeView) SetAnalysisLive(live bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.live = append(v.live, live)
}

func (v *fakeView) RenderFrame(frame domain.VisualFrameEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frames = append(v.frames, frame)
}

func (v *fakeView) SetBusy(busy bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.busy = append(v.busy, busy)
}

func (v *fakeView) ShowNotice(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, message)
}

func (v *fakeView) lastPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.playing) > 0 && v.playing[len(v.playing)-1]
}

func (v *fakeView) lastLive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.live) > 0 && v.live[len(v.live)-1]
}

func (v *fakeView) snapshot() viewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return viewState{
		tracks:  append([]domain.TrackInfo(nil), v.tracks...),
		cleared: v.cleared,
		frames:  append([]domain.VisualFrameEvent(nil), v.frames...),
		busy:    append([]bool(nil), v.busy...),
		notices: append([]string(nil), v.notices...),
	}
}

var _ ports.View = (*fakeView)(nil)

type presenterHarness struct {
	presenter *Presenter
	pipeline  *service.PipelineService
	sources   *service.SourceService
	bus       *eventbus.SyncEventBus
	clock     *clock.Manual
	view      *fakeView
}

func newPresenterHarness(t *testing.T) *presenterHarness {
	t.Helper()

	log := logger.NewTestLogger()
	h := &presenterHarness{
		bus:   eventbus.NewSyncEventBus(),
		clock: clock.NewManual(time.Unix(0, 0)),
		view:  &fakeView{},
	}
	h.pipeline = service.NewPipelineService(log, service.PipelineDeps{
		URLs:     objecturl.NewManager(log),
		Elements: mock.NewElementFactory(),
		Graphs:   mock.NewGraphFactory(),
		Frames:   h.clock,
		Bus:      h.bus,
	})
	h.sources = service.NewSourceService(log, h.pipeline, service.SourceDeps{Bus: h.bus})
	h.presenter = NewPresenter(log, h.pipeline, h.sources, h.bus, h.view)
	return h
}

func (h *presenterHarness) close(t *testing.T) {
	h.presenter.Shutdown()
	assert.True(t, h.sources.Shutdown(time.Second))
	assert.NoError(t, h.pipeline.Shutdown())
}

func writeFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
	return path
}

func TestPresenter_SyncsInitialState(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newPresenterHarness(t)
	defer h.close(t)

	got := h.view.snapshot()
	assert.Equal(t, 1, got.cleared)
	assert.Empty(t, got.tracks)
	assert.Equal(t, []bool{false}, got.busy)
	assert.False(t, h.view.lastPlaying())
	assert.False(t, h.view.lastLive())
}

func TestPresenter_LoadPlayPause(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newPresenterHarness(t)
	defer h.close(t)

	h.presenter.OnFileChosen(writeFile(t, "song.mp3", 3<<20))
	h.presenter.wait()

	got := h.view.snapshot()
	require.Len(t, got.tracks, 1)
	assert.Equal(t, "song.mp3", got.tracks[0].Name)
	assert.Equal(t, "3.00 MB", got.tracks[0].SizeMB())
	assert.Equal(t, []bool{false, true, false}, got.busy, "busy while loading")

	h.presenter.OnPlayPauseClicked()
	h.presenter.wait()
	assert.True(t, h.view.lastPlaying())
	assert.True(t, h.view.lastLive())

	h.clock.Advance(3)
	var sampled int
	for _, f := range h.view.snapshot().frames {
		if f.Snapshot != nil {
			sampled++
			assert.True(t, f.Playing())
		}
	}
	assert.Equal(t, 3, sampled)

	h.presenter.OnPlayPauseClicked()
	h.presenter.wait()
	assert.False(t, h.view.lastPlaying())
	assert.False(t, h.view.lastLive())
	assert.Empty(t, h.view.snapshot().notices)
}

func TestPresenter_ReplaceClearsThenShowsNewTrack(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newPresenterHarness(t)
	defer h.close(t)

	h.presenter.OnFileChosen(writeFile(t, "first.mp3", 1024))
	h.presenter.wait()
	h.presenter.OnFilesDropped([]string{writeFile(t, "clip.mp4", 2048), "ignored.mp3"})
	h.presenter.wait()

	got := h.view.snapshot()
	require.Len(t, got.tracks, 2)
	assert.Equal(t, "clip.mp4", got.tracks[1].Name)
	assert.Equal(t, domain.KindVideo, got.tracks[1].Kind)
	assert.Equal(t, 2, got.cleared, "initial sync and the replaced source")
}

func TestPresenter_ShowsNotices(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newPresenterHarness(t)
	defer h.close(t)

	h.presenter.OnFilesDropped([]string{"/tmp/notes.txt"})
	h.presenter.OnLiveCodeSubmitted("   ")
	h.presenter.OnPlayPauseClicked()
	h.presenter.wait()

	assert.ElementsMatch(t, []string{
		domain.MsgDropRejected,
		domain.MsgEmptyCode,
		domain.MsgNothingLoaded,
	}, h.view.snapshot().notices)
	assert.Equal(t, domain.StateIdle, h.pipeline.State())
}

func TestPresenter_ShutdownDetaches(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	h := newPresenterHarness(t)
	defer h.close(t)

	h.presenter.Shutdown()
	h.presenter.Shutdown()

	h.bus.Publish(domain.NewNoticeEvent("late", domain.CategorySetup, nil))
	h.presenter.OnFileChosen(writeFile(t, "song.mp3", 1024))
	h.presenter.wait()

	got := h.view.snapshot()
	assert.Empty(t, got.notices)
	assert.Empty(t, got.tracks)
	assert.Equal(t, domain.StateIdle, h.pipeline.State())
}
