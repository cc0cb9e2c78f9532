package widgets

import (
	"image"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/scene"
)

func TestSynthwave_DrawFillsRaster(t *testing.T) {
	test.NewApp()

	v := NewSynthwave(1)
	img := v.draw(320, 200)

	require.Equal(t, image.Rect(0, 0, 320, 200), img.Bounds())
	rgba, ok := img.(*image.RGBA)
	require.True(t, ok)

	// Sky and ground are painted, nothing is left transparent.
	assert.Equal(t, uint8(0xff), rgba.RGBAAt(0, 0).A)
	assert.Equal(t, uint8(0xff), rgba.RGBAAt(319, 199).A)
}

func TestSynthwave_DrawEmptyRaster(t *testing.T) {
	test.NewApp()

	v := NewSynthwave(1)
	assert.Equal(t, image.Rect(0, 0, 0, 0), v.draw(0, 0).Bounds())
}

func TestSynthwave_TickFollowsAudio(t *testing.T) {
	test.NewApp()

	v := NewSynthwave(1)
	rest := v.Frame()
	for _, b := range rest.Bars {
		assert.InDelta(t, 0.1, b.Scale, 1e-9)
	}

	snap := make(domain.FrequencySnapshot, 128)
	for i := range snap {
		snap[i] = 255
	}
	v.Apply(domain.NewVisualFrameEvent(snap, domain.StatePlaying))
	v.Tick(500 * time.Millisecond)

	f := v.Frame()
	assert.True(t, f.Live)
	assert.InDelta(t, 0.5, f.Time, 1e-9)
	require.Len(t, f.Bars, scene.BarCount)
	assert.InDelta(t, 2.1, f.Bars[0].Scale, 1e-9)

	v.Reset()
	v.Tick(time.Second)
	assert.False(t, v.Frame().Live)
	assert.InDelta(t, 0.1, v.Frame().Bars[0].Scale, 1e-9)
}

func TestProjector(t *testing.T) {
	p := newProjector(200, 100)

	x, y, ok := p.project(0, 0, 0)
	require.True(t, ok)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)

	_, _, ok = p.project(0, 0, cameraZ)
	assert.False(t, ok, "points at the camera are not drawn")

	x, y, _ = p.project(1, 1, 0)
	assert.Greater(t, x, 100.0)
	assert.Less(t, y, 50.0, "positive y is up")
}

func TestMarquee(t *testing.T) {
	short := NewMarquee("song.mp3", 15)
	assert.False(t, short.Scrolls())
	assert.Equal(t, "song.mp3", short.Rotate())
	assert.Equal(t, "song.mp3", short.Rotate())

	long := NewMarquee("abcdef", 4)
	assert.True(t, long.Scrolls())
	assert.Equal(t, "bcde", long.Rotate())
	assert.Equal(t, "cdef", long.Rotate())
	assert.Equal(t, "def ", long.Rotate())

	// A full cycle returns to the start.
	for range 7 {
		long.Rotate()
	}
	assert.Equal(t, "bcde", long.Rotate())
}

func TestDoubleTapLabel(t *testing.T) {
	test.NewApp()

	taps := 0
	label := NewDoubleTapLabel("name", func() { taps++ })
	label.DoubleTapped(nil)
	assert.Equal(t, 1, taps)
	assert.Equal(t, "name", label.Text)
}

func TestTappableStack(t *testing.T) {
	test.NewApp()

	taps, secondary := 0, 0
	stack := NewTappableStack(func() { taps++ }, func(*fyne.PointEvent) { secondary++ })
	stack.Tapped(nil)
	stack.TappedSecondary(nil)
	assert.Equal(t, 1, taps)
	assert.Equal(t, 1, secondary)
}
