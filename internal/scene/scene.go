// Package scene holds the synthwave visualization state: audio-reactive
// bars, a drifting particle cloud and the time-driven sun, grid and
// mountains. It is independent of any toolkit; the Fyne widget projects a
// Frame onto a raster.
package scene

import (
	"math"
	"math/rand"
	"sync"

	"github.com/tejashwikalptaru/truestream/internal/domain"
)

const (
	BarCount      = 64
	ParticleCount = 1000

	barSpacing     = 0.3
	barBaseY       = -4.0
	particleSpread = 50.0
)

// Bar is one audio-reactive bar. Hue and Lightness are HSL components in
// [0, 1] with full saturation.
type Bar struct {
	X         float64
	Y         float64 // center height
	Scale     float64 // vertical scale
	Amplitude float64
	Hue       float64
	Lightness float64
}

// Particle is a point in the cloud, in scene units centered on the origin.
type Particle struct {
	X, Y, Z float64
}

// Frame is the renderable state after a Step.
type Frame struct {
	Time float64
	Live bool

	Bars      []Bar
	Particles []Particle

	// Rotation of the particle cloud around the X and Y axes, radians.
	CloudRotX float64
	CloudRotY float64

	SunY        float64
	SunRotation float64
	GridTilt    float64
	GridOffset  float64
	MountainYaw float64

	MeanAmplitude float64
}

// Scene accumulates animation state between frames.
//
// Thread-safety: Apply and Step may be called from different goroutines.
type Scene struct {
	mu        sync.Mutex
	snapshot  domain.FrequencySnapshot
	playing   bool
	bars      []Bar
	particles []Particle
	rotX      float64
	rotY      float64
	sunRot    float64
}

// New creates a scene whose particle cloud is seeded with seed.
func New(seed int64) *Scene {
	rng := rand.New(rand.NewSource(seed)) // nolint:gosec // visual effect only

	s := &Scene{
		bars:      make([]Bar, BarCount),
		particles: make([]Particle, ParticleCount),
	}
	for i := range s.bars {
		s.bars[i] = Bar{
			X:         float64(i-BarCount/2) * barSpacing,
			Scale:     0.1,
			Y:         barBaseY + 0.05,
			Hue:       0.5,
			Lightness: 0.5,
		}
	}
	for i := range s.particles {
		s.particles[i] = Particle{
			X: (rng.Float64() - 0.5) * particleSpread,
			Y: (rng.Float64() - 0.5) * particleSpread,
			Z: (rng.Float64() - 0.5) * particleSpread,
		}
	}
	return s
}

// Apply takes the latest visual frame event. A nil snapshot keeps the
// previous data, so a paused scene holds its last shape.
func (s *Scene) Apply(ev domain.VisualFrameEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playing = ev.Playing()
	if ev.Snapshot != nil {
		s.snapshot = ev.Snapshot.Clone()
	}
}

// Reset forgets the audio data, e.g. when a new source is loaded.
func (s *Scene) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = nil
	s.playing = false
	for i := range s.bars {
		s.bars[i].Amplitude = 0
		s.bars[i].Scale = 0.1
		s.bars[i].Y = barBaseY + 0.05
		s.bars[i].Hue = 0.5
		s.bars[i].Lightness = 0.5
	}
}

// Step advances the animation to t seconds since start and returns a
// frame that does not alias scene state.
func (s *Scene) Step(t float64) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rotY += 0.001
	s.rotX += 0.0005
	s.sunRot += 0.01

	data := s.snapshot
	mean := 0.0
	if len(data) > 0 {
		for i := range s.bars {
			idx := int(math.Floor(float64(i) / BarCount * float64(len(data))))
			a := float64(data[idx]) / 255
			scale := 0.1 + a*2
			s.bars[i].Amplitude = a
			s.bars[i].Scale = scale
			s.bars[i].Y = barBaseY + scale/2
			s.bars[i].Hue = 0.5 + a*0.3
			s.bars[i].Lightness = 0.5 + a*0.5
		}

		mean = data.Mean()
		for i := range s.particles {
			s.particles[i].Y += math.Sin(t+float64(3*i)) * mean * 0.01
		}
	}

	return Frame{
		Time:          t,
		Live:          s.playing,
		Bars:          append([]Bar(nil), s.bars...),
		Particles:     append([]Particle(nil), s.particles...),
		CloudRotX:     s.rotX,
		CloudRotY:     s.rotY,
		SunY:          3 + math.Sin(t*0.3)*0.5,
		SunRotation:   s.sunRot,
		GridTilt:      math.Sin(t*0.1) * 0.1,
		GridOffset:    math.Sin(t*0.2) * 0.5,
		MountainYaw:   math.Sin(t*0.05) * 0.1,
		MeanAmplitude: mean,
	}
}

// HSLToRGB converts HSL in [0, 1] to 8-bit RGB.
func HSLToRGB(h, s, l float64) (r, g, b uint8) {
	h = h - math.Floor(h)
	if s == 0 {
		v := clamp8(l)
		return v, v, v
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return clamp8(hueToRGB(p, q, h+1.0/3.0)), clamp8(hueToRGB(p, q, h)), clamp8(hueToRGB(p, q, h-1.0/3.0))
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(math.Round(v * 255))
	}
}
