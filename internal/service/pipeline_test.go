package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/truestream/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
	"github.com/tejashwikalptaru/truestream/internal/testutil"
)

func TestPipeline_LoadAndPlayPublishesSnapshots(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	assert.Equal(t, domain.StateReady, h.svc.State())

	info, ok := h.svc.TrackInfo()
	require.True(t, ok)
	assert.Equal(t, "song.mp3", info.Name)
	assert.Equal(t, "3.00 MB", info.SizeMB())

	require.NoError(t, h.svc.Play(ctx))
	assert.Equal(t, domain.StatePlaying, h.svc.State())
	assert.Empty(t, h.log.snapshots(), "nothing sampled before the first frame")

	assert.Equal(t, 1, h.clock.Step())

	snaps := h.log.snapshots()
	require.Len(t, snaps, 1)
	assert.Len(t, snaps[0], 128)
	assert.Equal(t, uint8(128), snaps[0][0])
	assert.Equal(t, snaps[0], h.svc.LastSnapshot())

	assert.Equal(t, [][2]domain.PlaybackState{
		{domain.StateIdle, domain.StateReady},
		{domain.StateReady, domain.StatePlaying},
	}, h.log.transitions())
	assert.Equal(t, 1, h.log.count(domain.EventSourceLoaded))
	assert.Equal(t, 1, h.clock.Pending(), "loop re-armed")
	assert.Empty(t, h.log.notices())
}

func TestPipeline_ReplaceWhilePlaying(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	require.NoError(t, h.svc.Play(ctx))
	h.clock.Advance(3)

	oldElement := h.elements.Last()
	oldGraph := h.graphs.Last()
	oldURL := oldElement.URL()
	oldSamples, _, _ := oldGraph.Stats()
	h.journal.Reset()

	require.NoError(t, h.svc.LoadNewSource(videoSource("clip.mp4")))

	assert.Equal(t, []string{
		"element.remove_listener:1",
		"element.close:1",
		"graph.close:1",
		"url.release",
		"url.acquire",
	}, h.journal.Entries())

	assert.True(t, oldElement.Closed())
	assert.Zero(t, oldElement.ListenerCount())
	assert.Equal(t, ports.GraphClosed, oldGraph.State())
	_, err := h.urls.Resolve(oldURL)
	assert.ErrorIs(t, err, domain.ErrUnknownObjectURL)

	newElement := h.elements.Last()
	assert.Equal(t, domain.KindVideo, newElement.Kind())
	assert.True(t, newElement.Attached())
	assert.Same(t, newElement, h.graphs.Last().Element())
	assert.Equal(t, domain.StateReady, h.svc.State())

	require.NoError(t, h.svc.Play(ctx))
	h.clock.Advance(5)

	samples, _, _ := oldGraph.Stats()
	assert.Equal(t, oldSamples, samples, "old graph sampled after replacement")
	assert.Equal(t, 1, h.urls.Live())
	assert.Equal(t, 1, h.elements.Live())
	assert.Equal(t, 1, h.graphs.Live())
}

func TestPipeline_RejectsNonMediaSource(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()

	err := h.svc.LoadNewSource(domain.NewMediaSource("notes.txt", "text/plain", []byte("hello")))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
	assert.Equal(t, domain.StateIdle, h.svc.State())
	assert.Equal(t, []string{domain.MsgDropRejected}, h.log.notices())
	assert.Equal(t, 1, h.log.count(domain.EventSourceRejected))
	assert.Empty(t, h.elements.Elements())

	// A rejection leaves a playing source alone.
	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	require.NoError(t, h.svc.Play(ctx))
	h.log.reset()

	err = h.svc.LoadNewSource(domain.NewMediaSource("notes.txt", "text/plain", []byte("hello")))
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
	assert.Equal(t, domain.StatePlaying, h.svc.State())
	assert.False(t, h.elements.Last().Closed())
	assert.Equal(t, 1, h.clock.Step())
	assert.Empty(t, h.reporter.reported(), "validation errors are not reported")
}

func TestPipeline_RejectsEmptySource(t *testing.T) {
	h := newPipelineHarness(t)

	err := h.svc.LoadNewSource(domain.NewMediaSource("empty.mp3", "audio/mpeg", nil))
	assert.ErrorIs(t, err, domain.ErrEmptySource)
	assert.Equal(t, domain.StateIdle, h.svc.State())
	assert.Empty(t, h.elements.Elements())
}

func TestPipeline_PlayRejected(t *testing.T) {
	h := newPipelineHarness(t)
	h.elements.OnCreate(func(e *mock.Element) {
		e.SetFailPlay(domain.ErrPlaybackRejected)
	})

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))

	err := h.svc.Play(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPlaybackRejected)
	assert.Equal(t, domain.CategoryPlayback, domain.CategoryOf(err))

	assert.Equal(t, domain.StateReady, h.svc.State())
	assert.Equal(t, []string{domain.MsgPlayFailed}, h.log.notices())
	assert.Zero(t, h.clock.Pending(), "no sampling task started")
	assert.Zero(t, h.clock.Advance(3))
	assert.Len(t, h.reporter.reported(), 1)
}

func TestPipeline_RejectedPlaySuspendsGraph(t *testing.T) {
	h := newPipelineHarness(t)
	h.elements.OnCreate(func(e *mock.Element) {
		e.SetFailPlay(domain.ErrPlaybackRejected)
	})

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	require.Error(t, h.svc.Play(context.Background()))

	g := h.graphs.Last()
	_, resumes, _ := g.Stats()
	assert.Equal(t, 1, resumes)
	assert.Equal(t, 1, g.Suspends())
	assert.Equal(t, ports.GraphSuspended, g.State(), "device released for an element that is not playing")
}

func TestPipeline_DeviceRefusalIsAPlayFailure(t *testing.T) {
	h := newPipelineHarness(t)
	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	h.graphs.Last().SetFailResume(true)

	err := h.svc.Play(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.CategoryPlayback, domain.CategoryOf(err))
	assert.Equal(t, domain.StateReady, h.svc.State())
	assert.Equal(t, []string{domain.MsgPlayFailed}, h.log.notices())

	_, plays, _, _ := h.elements.Last().Stats()
	assert.Zero(t, plays, "element is not asked to play without a device")
	assert.Zero(t, h.graphs.Last().Suspends())
	assert.Zero(t, h.clock.Pending())
}

func TestPipeline_RepeatedLoadsDoNotLeak(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		src := audioSource("song.mp3")
		if i%3 == 0 {
			src = videoSource("clip.mp4")
		}
		require.NoError(t, h.svc.LoadNewSource(src))
		if i%2 == 0 {
			require.NoError(t, h.svc.Play(ctx))
			h.clock.Step()
		}

		require.Equal(t, 1, h.urls.Live(), "load %d", i)
		require.Equal(t, 1, h.elements.Live(), "load %d", i)
		require.Equal(t, 1, h.graphs.Live(), "load %d", i)
		require.LessOrEqual(t, h.elements.AttachedCount(), 1, "load %d", i)
		require.LessOrEqual(t, h.clock.Pending(), 1, "load %d", i)
	}

	acquired, released := h.urls.Stats()
	assert.Equal(t, uint64(25), acquired)
	assert.Equal(t, uint64(24), released)
	assert.Equal(t, 1, h.metrics.liveCount("url"))
	assert.Equal(t, 1, h.metrics.liveCount("element"))

	require.NoError(t, h.svc.Shutdown())
	assert.Zero(t, h.urls.Live())
	assert.Zero(t, h.elements.Live())
	assert.Zero(t, h.graphs.Live())
	assert.Zero(t, h.elements.AttachedCount())
	assert.Zero(t, h.clock.Pending())
	assert.Zero(t, h.metrics.liveCount("url"))
	assert.Zero(t, h.metrics.liveCount("loop"))

	for _, e := range h.elements.Elements() {
		if e.Kind() == domain.KindVideo {
			assert.Equal(t, 1, e.Detaches(), "video element %d", e.ID())
		}
		_, _, _, closes := e.Stats()
		assert.Equal(t, 1, closes, "element %d", e.ID())
	}
	for i, g := range h.graphs.Graphs() {
		_, _, closes := g.Stats()
		assert.Equal(t, 1, closes, "graph %d", i)
	}
}

func TestPipeline_ShutdownIsIdempotent(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	h := newPipelineHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	require.NoError(t, h.svc.Play(ctx))
	h.journal.Reset()

	require.NoError(t, h.svc.Shutdown())
	require.NoError(t, h.svc.Shutdown())

	assert.Equal(t, []string{
		"element.remove_listener:1",
		"element.close:1",
		"graph.close:1",
		"url.release",
	}, h.journal.Entries())

	_, _, _, closes := h.elements.Last().Stats()
	assert.Equal(t, 1, closes)
	assert.Equal(t, domain.StateIdle, h.svc.State())

	assert.ErrorIs(t, h.svc.LoadNewSource(audioSource("late.mp3")), domain.ErrPipelineClosed)
	assert.ErrorIs(t, h.svc.Play(ctx), domain.ErrPipelineClosed)
	assert.ErrorIs(t, h.svc.Pause(), domain.ErrPipelineClosed)
	assert.Len(t, h.elements.Elements(), 1)
}

func TestPipeline_ShutdownWithoutSource(t *testing.T) {
	h := newPipelineHarness(t)

	require.NoError(t, h.svc.Shutdown())
	assert.Empty(t, h.journal.Entries())
	assert.Zero(t, h.log.count(domain.EventSourceReleased))
}

func TestPipeline_PauseStopsTicks(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	require.NoError(t, h.svc.Play(ctx))
	h.clock.Advance(2)
	require.Len(t, h.log.snapshots(), 2)

	require.NoError(t, h.svc.Pause())
	assert.Equal(t, domain.StatePaused, h.svc.State())
	assert.Zero(t, h.clock.Pending())
	assert.Zero(t, h.clock.Advance(5))
	assert.Len(t, h.log.snapshots(), 2)

	// Pausing again is a no-op.
	require.NoError(t, h.svc.Pause())

	require.NoError(t, h.svc.Play(ctx))
	assert.Equal(t, domain.StatePlaying, h.svc.State())
	h.clock.Advance(2)
	assert.Len(t, h.log.snapshots(), 4)
}

func TestPipeline_DequeuedTickAfterStopIsIgnored(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	require.NoError(t, h.svc.Play(ctx))

	// The scheduler has already dequeued the callback when pause arrives,
	// so CancelFrame cannot stop it.
	inFlight := h.clock.Take()
	require.Len(t, inFlight, 1)
	require.NoError(t, h.svc.Pause())

	graph := h.graphs.Last()
	before, _, _ := graph.Stats()
	for _, fn := range inFlight {
		fn(h.clock.Now())
	}
	after, _, _ := graph.Stats()

	assert.Equal(t, before, after)
	assert.Empty(t, h.log.snapshots())
	assert.Zero(t, h.clock.Pending(), "stale callback must not re-arm")
}

func TestPipeline_DequeuedTickAfterReplaceIsIgnored(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	require.NoError(t, h.svc.Play(ctx))
	inFlight := h.clock.Take()
	oldGraph := h.graphs.Last()

	require.NoError(t, h.svc.LoadNewSource(audioSource("next.mp3")))
	require.NoError(t, h.svc.Play(ctx))
	require.Equal(t, 1, h.clock.Pending())

	for _, fn := range inFlight {
		fn(h.clock.Now())
	}

	samples, _, _ := oldGraph.Stats()
	assert.Zero(t, samples)
	assert.Empty(t, h.log.snapshots())
	assert.Equal(t, 1, h.clock.Pending())
}

func TestPipeline_StaleElementEventsDropped(t *testing.T) {
	h := newPipelineHarness(t)

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	old := h.elements.Last()
	listeners := old.Listeners()
	require.Len(t, listeners, 1)

	require.NoError(t, h.svc.LoadNewSource(audioSource("next.mp3")))
	h.log.reset()

	old.FireTo(listeners, domain.ElementPlay, nil)
	old.FireTo(listeners, domain.ElementError, errors.New("decode failed"))

	assert.Equal(t, domain.StateReady, h.svc.State())
	assert.Empty(t, h.log.notices())
	assert.Empty(t, h.log.transitions())
	assert.Zero(t, h.clock.Pending())
}

func TestPipeline_EndedIsTerminal(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	require.NoError(t, h.svc.Play(ctx))
	h.elements.Last().Fire(domain.ElementEnded, nil)

	assert.Equal(t, domain.StateEnded, h.svc.State())
	assert.Zero(t, h.clock.Pending())

	err := h.svc.Play(ctx)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.StateEnded, h.svc.State())
	assert.Empty(t, h.log.notices())

	// A new source recovers.
	require.NoError(t, h.svc.LoadNewSource(audioSource("next.mp3")))
	assert.Equal(t, domain.StateReady, h.svc.State())
}

func TestPipeline_ElementErrorNotifiesOnce(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.LoadNewSource(videoSource("clip.mp4")))
	require.NoError(t, h.svc.Play(ctx))

	el := h.elements.Last()
	el.Fire(domain.ElementError, errors.New("decode failed"))
	el.Fire(domain.ElementError, errors.New("decode failed again"))

	assert.Equal(t, domain.StateErrored, h.svc.State())
	assert.Equal(t, []string{domain.MsgElementFailed}, h.log.notices())
	assert.Zero(t, h.clock.Pending())

	// Resources stay until the next load tears them down.
	assert.False(t, el.Closed())
	assert.True(t, el.Attached())

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	assert.True(t, el.Closed())
	assert.False(t, el.Attached())
	assert.Zero(t, el.ListenerCount())
}

func TestPipeline_SetupFailureTearsDownPartialInstance(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	require.NoError(t, h.svc.Play(ctx))
	h.journal.Reset()
	h.log.reset()

	h.graphs.SetFailCreate(true)
	err := h.svc.LoadNewSource(audioSource("next.mp3"))
	require.Error(t, err)
	assert.ErrorIs(t, err, mock.ErrInjected)
	assert.Equal(t, domain.CategorySetup, domain.CategoryOf(err))

	assert.Equal(t, []string{
		"element.remove_listener:1",
		"element.close:1",
		"graph.close:1",
		"url.release",
		"url.acquire",
		"element.close:2",
		"url.release",
	}, h.journal.Entries())

	assert.Equal(t, domain.StateIdle, h.svc.State())
	assert.Equal(t, []string{domain.MsgSetupFailed}, h.log.notices())
	assert.Zero(t, h.urls.Live())
	assert.Zero(t, h.elements.Live())
	assert.Zero(t, h.graphs.Live())
	_, ok := h.svc.TrackInfo()
	assert.False(t, ok)

	// The pipeline recovers on the next load.
	h.graphs.SetFailCreate(false)
	require.NoError(t, h.svc.LoadNewSource(audioSource("next.mp3")))
	assert.Equal(t, domain.StateReady, h.svc.State())
}

func TestPipeline_PreloadFailure(t *testing.T) {
	h := newPipelineHarness(t)
	h.elements.OnCreate(func(e *mock.Element) {
		e.SetFailLoad(true)
	})

	err := h.svc.LoadNewSource(audioSource("broken.mp3"))
	require.Error(t, err)

	assert.Equal(t, []string{
		"url.acquire",
		"element.remove_listener:1",
		"element.close:1",
		"graph.close:1",
		"url.release",
	}, h.journal.Entries())
	assert.Equal(t, domain.StateIdle, h.svc.State())
	assert.Equal(t, []string{domain.MsgSetupFailed}, h.log.notices())
}

func TestPipeline_CommandsWithoutSource(t *testing.T) {
	h := newPipelineHarness(t)

	err := h.svc.Play(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSourceLoaded)
	err = h.svc.Pause()
	assert.ErrorIs(t, err, domain.ErrNoSourceLoaded)

	assert.Equal(t, []string{domain.MsgNothingLoaded, domain.MsgNothingLoaded}, h.log.notices())
	assert.Empty(t, h.reporter.reported())
	assert.Nil(t, h.svc.LastSnapshot())
}

func TestPipeline_TogglePlayPause(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))

	require.NoError(t, h.svc.TogglePlayPause(ctx))
	assert.Equal(t, domain.StatePlaying, h.svc.State())
	require.NoError(t, h.svc.TogglePlayPause(ctx))
	assert.Equal(t, domain.StatePaused, h.svc.State())
	require.NoError(t, h.svc.TogglePlayPause(ctx))
	assert.Equal(t, domain.StatePlaying, h.svc.State())
}

func TestPipeline_PublishedSnapshotsAreCopies(t *testing.T) {
	h := newPipelineHarness(t)

	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	require.NoError(t, h.svc.Play(context.Background()))

	h.clock.Step()
	h.graphs.Last().SetLevel(200)
	h.clock.Step()

	snaps := h.log.snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, uint8(128), snaps[0][5])
	assert.Equal(t, uint8(200), snaps[1][5])

	last := h.svc.LastSnapshot()
	last[5] = 7
	assert.Equal(t, uint8(200), h.svc.LastSnapshot()[5])
	assert.Equal(t, uint64(2), h.svc.Ticks())
}

func TestPipeline_TagsFillTrackInfo(t *testing.T) {
	h := newPipelineHarness(t)
	h.svc.deps.Tags = staticTags{title: "Nightcall", artist: "Kavinsky"}

	require.NoError(t, h.svc.LoadNewSource(audioSource("track01.mp3")))

	info, ok := h.svc.TrackInfo()
	require.True(t, ok)
	assert.Equal(t, "Kavinsky - Nightcall", info.DisplayName())
}

func TestPipeline_PlayReleasesLockWhileWaiting(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	h := newPipelineHarness(t)
	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))

	el := h.elements.Last()
	release := el.HoldPlay()

	result := make(chan error, 1)
	go func() {
		result <- h.svc.Play(context.Background())
	}()

	assert.Eventually(t, func() bool {
		_, plays, _, _ := el.Stats()
		return plays == 1
	}, time.Second, time.Millisecond)

	// Commands still go through while play is pending.
	assert.Equal(t, domain.StateReady, h.svc.State())
	require.NoError(t, h.svc.Play(context.Background()), "second play coalesces")
	_, plays, _, _ := el.Stats()
	assert.Equal(t, 1, plays, "coalesced play does not reach the element")
	require.NoError(t, h.svc.LoadNewSource(audioSource("next.mp3")))

	release()
	err := <-result
	assert.ErrorIs(t, err, domain.ErrElementClosed)
	assert.Empty(t, h.log.notices(), "failure of a replaced element is not shown")
	assert.Equal(t, domain.StateReady, h.svc.State())
}

func TestPipeline_PlayContextCanceled(t *testing.T) {
	h := newPipelineHarness(t)
	require.NoError(t, h.svc.LoadNewSource(audioSource("song.mp3")))
	release := h.elements.Last().HoldPlay()
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := h.svc.Play(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.StateReady, h.svc.State())
	assert.Equal(t, []string{domain.MsgPlayFailed}, h.log.notices())

	// A later play is not blocked by the abandoned one.
	release()
	require.NoError(t, h.svc.Play(context.Background()))
	assert.Equal(t, domain.StatePlaying, h.svc.State())
}
