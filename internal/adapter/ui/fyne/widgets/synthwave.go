// Package widgets provides custom Fyne widgets for the TrueStream application.
package widgets

import (
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/scene"
)

// Camera of the 2D projection, in scene units.
const (
	cameraZ   = 10.0
	cameraFOV = 75.0 * math.Pi / 180
	nearPlane = 0.1

	barWidth     = 0.2
	gridLines    = 24
	gridRows     = 14
	mountainStep = 8
)

var (
	skyTop       = color.RGBA{R: 0x12, G: 0x00, B: 0x2b, A: 0xff}
	skyHorizon   = color.RGBA{R: 0x7a, G: 0x0f, B: 0x6e, A: 0xff}
	groundTop    = color.RGBA{R: 0x1a, G: 0x03, B: 0x30, A: 0xff}
	groundBottom = color.RGBA{R: 0x05, G: 0x00, B: 0x10, A: 0xff}
	sunTop       = color.RGBA{R: 0xff, G: 0xd3, B: 0x19, A: 0xff}
	sunBottom    = color.RGBA{R: 0xff, G: 0x29, B: 0x75, A: 0xff}
	gridColor    = color.RGBA{R: 0xff, G: 0x2a, B: 0xd4, A: 0xb0}
	mountainFill = color.RGBA{R: 0x20, G: 0x05, B: 0x3a, A: 0xff}
	mountainEdge = color.RGBA{R: 0x00, G: 0xf0, B: 0xff, A: 0xc0}
	particleCol  = color.RGBA{R: 0xe0, G: 0xf0, B: 0xff, A: 0xa0}
)

// Synthwave renders the synthwave scene: a striped sun over a scrolling
// grid, a mountain ridge, a particle cloud and one bar per frequency band.
//
// The widget does not animate on its own; the owner calls Tick at the
// display rate on the UI goroutine.
type Synthwave struct {
	widget.BaseWidget

	raster *canvas.Raster
	scene  *scene.Scene

	mu    sync.Mutex
	frame scene.Frame
}

// NewSynthwave creates the widget; seed fixes the particle layout.
func NewSynthwave(seed int64) *Synthwave {
	v := &Synthwave{scene: scene.New(seed)}
	v.frame = v.scene.Step(0)

	v.raster = canvas.NewRaster(v.draw)
	v.ExtendBaseWidget(v)

	return v
}

// CreateRenderer implements fyne.Widget.
func (v *Synthwave) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.raster)
}

// MinSize returns a small minimum so the scene fills the available space.
func (v *Synthwave) MinSize() fyne.Size {
	return fyne.NewSize(320, 200)
}

// Apply feeds a visual frame event to the scene. Safe from any goroutine.
func (v *Synthwave) Apply(ev domain.VisualFrameEvent) {
	v.scene.Apply(ev)
}

// Reset drops the audio data so the bars fall back to rest.
func (v *Synthwave) Reset() {
	v.scene.Reset()
}

// Tick advances the animation to elapsed time and redraws.
func (v *Synthwave) Tick(elapsed time.Duration) {
	f := v.scene.Step(elapsed.Seconds())

	v.mu.Lock()
	v.frame = f
	v.mu.Unlock()

	v.raster.Refresh()
}

// Frame returns the frame the next redraw uses.
func (v *Synthwave) Frame() scene.Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame
}

// draw is the raster generator function that renders the scene.
func (v *Synthwave) draw(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return img
	}

	f := v.Frame()
	p := newProjector(w, h)
	horizon := int(float64(h)*0.55 + f.GridTilt*float64(h)*0.5)

	fillVerticalGradient(img, 0, horizon, skyTop, skyHorizon)
	drawSun(img, w, h, horizon, f)

	// The ground hides the lower part of the sun.
	fillVerticalGradient(img, horizon, h, groundTop, groundBottom)

	drawMountains(img, w, horizon, f)
	drawGrid(img, w, h, horizon, f)
	drawParticles(img, p, f)
	drawBars(img, p, f)

	return img
}

// projector maps scene coordinates onto the raster.
type projector struct {
	w, h  float64
	focal float64
}

func newProjector(w, h int) projector {
	return projector{
		w:     float64(w),
		h:     float64(h),
		focal: float64(h) / (2 * math.Tan(cameraFOV/2)),
	}
}

// project returns the screen position of (x, y, z) and false when the
// point is behind the camera.
func (p projector) project(x, y, z float64) (float64, float64, bool) {
	depth := cameraZ - z
	if depth <= nearPlane {
		return 0, 0, false
	}
	return p.w/2 + x*p.focal/depth, p.h/2 - y*p.focal/depth, true
}

func drawSun(img *image.RGBA, w, h, horizon int, f scene.Frame) {
	radius := float64(h) * 0.18
	cx := w / 2
	cy := horizon - int(f.SunY*float64(h)*0.05)

	// Stripes widen toward the bottom and scroll with the rotation.
	diameter := 2 * radius
	shift := math.Mod(f.SunRotation*8, 12)
	skip := func(row int) bool {
		pos := float64(row) / diameter
		if pos < 0.5 {
			return false
		}
		band := math.Mod(float64(row)+shift, 12)
		return band < (pos-0.5)*10
	}
	col := func(row int) color.RGBA {
		return lerpColor(sunTop, sunBottom, float64(row)/diameter)
	}
	fillCircle(img, cx, cy, radius, skip, col)
}

func drawMountains(img *image.RGBA, w, horizon int, f scene.Frame) {
	peak := func(x float64) float64 {
		return 0.5 + 0.3*math.Sin(x*0.013) + 0.2*math.Sin(x*0.041+1.3)
	}

	shift := f.MountainYaw * float64(w) * 2
	height := float64(horizon) * 0.35

	prevX, prevY := 0.0, 0.0
	for x := 0; x <= w; x += mountainStep {
		ridge := float64(horizon) - height*peak(float64(x)+shift)
		fillRect(img, x, int(ridge), x+mountainStep, horizon, mountainFill)
		if x > 0 {
			drawLine(img, prevX, prevY, float64(x), ridge, 2, mountainEdge)
		}
		prevX, prevY = float64(x), ridge
	}
}

func drawGrid(img *image.RGBA, w, h, horizon int, f scene.Frame) {
	vanishX := float64(w) / 2
	ground := float64(h - horizon)
	if ground <= 0 {
		return
	}

	for i := -gridLines / 2; i <= gridLines/2; i++ {
		bottomX := vanishX + float64(i)*float64(w)/float64(gridLines)*3
		drawLine(img, vanishX, float64(horizon), bottomX, float64(h), 1, gridColor)
	}

	// Rows recede in depth; the offset scrolls them toward the viewer.
	offset := f.GridOffset - math.Floor(f.GridOffset)
	for k := 0; k < gridRows; k++ {
		depth := float64(k) + 1 - offset
		y := float64(horizon) + ground/depth
		if y >= float64(h) {
			continue
		}
		faded := gridColor
		faded.A = uint8(float64(gridColor.A) * math.Min(1, 2/depth))
		drawLine(img, 0, y, float64(w), y, 1, faded)
	}
}

func drawParticles(img *image.RGBA, p projector, f scene.Frame) {
	sinX, cosX := math.Sincos(f.CloudRotX)
	sinY, cosY := math.Sincos(f.CloudRotY)

	for _, pt := range f.Particles {
		// Rotate around Y, then around X.
		x := pt.X*cosY + pt.Z*sinY
		z := -pt.X*sinY + pt.Z*cosY
		y := pt.Y*cosX - z*sinX
		z = pt.Y*sinX + z*cosX

		sx, sy, ok := p.project(x, y, z)
		if !ok {
			continue
		}
		blend(img, int(sx), int(sy), particleCol)
	}
}

func drawBars(img *image.RGBA, p projector, f scene.Frame) {
	for _, b := range f.Bars {
		x0, y0, ok0 := p.project(b.X-barWidth/2, b.Y+b.Scale/2, 0)
		x1, y1, ok1 := p.project(b.X+barWidth/2, b.Y-b.Scale/2, 0)
		if !ok0 || !ok1 {
			continue
		}

		col := hslColor(b.Hue, 1, b.Lightness, 0xff)
		fillRect(img, int(x0), int(y0), int(math.Ceil(x1)), int(math.Ceil(y1)), col)

		// Glow line on top of the bar
		glow := hslColor(b.Hue, 1, math.Min(1, b.Lightness+0.2), 0x90)
		drawLine(img, x0, y0, x1, y0, 2, glow)
	}
}
