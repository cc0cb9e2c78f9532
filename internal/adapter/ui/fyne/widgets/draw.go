package widgets

import (
	"image"
	"image/color"
	"math"

	"github.com/tejashwikalptaru/truestream/internal/scene"
)

// hslColor converts an HSL color in [0, 1] with the given alpha.
func hslColor(h, s, l float64, a uint8) color.RGBA {
	r, g, b := scene.HSLToRGB(h, s, l)
	return color.RGBA{R: r, G: g, B: b, A: a}
}

// lerpColor mixes a and b; t is clamped to [0, 1].
func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// fillVerticalGradient paints rows [y0, y1) from top to bottom.
func fillVerticalGradient(img *image.RGBA, y0, y1 int, top, bottom color.RGBA) {
	bounds := img.Bounds()
	y0 = max(y0, bounds.Min.Y)
	y1 = min(y1, bounds.Max.Y)
	if y1 <= y0 {
		return
	}

	span := float64(y1 - y0)
	for y := y0; y < y1; y++ {
		col := lerpColor(top, bottom, float64(y-y0)/span)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

// blend draws col over the pixel at (x, y) using its alpha.
func blend(img *image.RGBA, x, y int, col color.RGBA) {
	if !(image.Point{X: x, Y: y}.In(img.Bounds())) {
		return
	}
	if col.A == 255 {
		img.SetRGBA(x, y, col)
		return
	}

	dst := img.RGBAAt(x, y)
	a := float64(col.A) / 255
	mix := func(s, d uint8) uint8 {
		return uint8(float64(s)*a + float64(d)*(1-a))
	}
	img.SetRGBA(x, y, color.RGBA{R: mix(col.R, dst.R), G: mix(col.G, dst.G), B: mix(col.B, dst.B), A: 255})
}

// drawLine draws a line with the given thickness.
func drawLine(img *image.RGBA, x1, y1, x2, y2 float64, thickness int, col color.RGBA) {
	dx := x2 - x1
	dy := y2 - y1
	length := math.Sqrt(dx*dx + dy*dy)
	if length == 0 {
		return
	}

	// Perpendicular unit vector for thickness
	perpX := -dy / length
	perpY := dx / length

	steps := int(length) + 1
	for t := -thickness / 2; t <= thickness/2; t++ {
		offsetX := float64(t) * perpX
		offsetY := float64(t) * perpY

		for i := 0; i <= steps; i++ {
			progress := float64(i) / float64(steps)
			blend(img, int(x1+dx*progress+offsetX), int(y1+dy*progress+offsetY), col)
		}
	}
}

// fillRect fills the axis-aligned rectangle [x0, x1) x [y0, y1).
func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	bounds := img.Bounds()
	x0, y0 = max(x0, bounds.Min.X), max(y0, bounds.Min.Y)
	x1, y1 = min(x1, bounds.Max.X), min(y1, bounds.Max.Y)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			blend(img, x, y, col)
		}
	}
}

// fillCircle fills a circle; rows for which skip returns true stay empty.
func fillCircle(img *image.RGBA, cx, cy int, radius float64, skip func(row int) bool, col func(row int) color.RGBA) {
	r := int(radius)
	for dy := -r; dy <= r; dy++ {
		if skip != nil && skip(dy+r) {
			continue
		}
		c := col(dy + r)
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				blend(img, cx+dx, cy+dy, c)
			}
		}
	}
}
