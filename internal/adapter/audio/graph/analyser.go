package graph

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/smallnest/ringbuffer"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/tejashwikalptaru/truestream/internal/domain"
)

const bytesPerSample = 4

// Analyser computes byte frequency data the way a Web Audio AnalyserNode
// does: Blackman window over the last FFTSize samples, FFT, magnitude
// scaled by 1/N, exponential smoothing over time, conversion to decibels
// and linear mapping of [MinDecibels, MaxDecibels] onto 0..255.
type Analyser struct {
	cfg domain.AnalyserConfig

	mu       sync.Mutex
	ring     *ringbuffer.RingBuffer // float32 LE, the most recent FFTSize samples
	raw      []byte
	frame    []float64
	window   []float64
	fft      *fourier.FFT
	coeffs   []complex128
	smoothed []float64
}

// NewAnalyser creates an analyser. cfg must be valid.
func NewAnalyser(cfg domain.AnalyserConfig) *Analyser {
	n := cfg.FFTSize

	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	window.Blackman(w)

	return &Analyser{
		cfg:      cfg,
		ring:     ringbuffer.New(n * bytesPerSample),
		raw:      make([]byte, n*bytesPerSample),
		frame:    make([]float64, n),
		window:   w,
		fft:      fourier.NewFFT(n),
		coeffs:   make([]complex128, n/2+1),
		smoothed: make([]float64, n/2),
	}
}

// BinCount returns FFTSize/2.
func (a *Analyser) BinCount() int {
	return a.cfg.BinCount()
}

// Write appends mono samples, discarding the oldest ones beyond FFTSize.
func (a *Analyser) Write(mono []float32) {
	if len(mono) == 0 {
		return
	}
	capacity := a.cfg.FFTSize
	if len(mono) > capacity {
		mono = mono[len(mono)-capacity:]
	}

	b := make([]byte, len(mono)*bytesPerSample)
	for i, v := range mono {
		binary.LittleEndian.PutUint32(b[i*bytesPerSample:], math.Float32bits(v))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if over := len(b) - a.ring.Free(); over > 0 {
		// drop the oldest samples
		_, _ = a.ring.Read(a.raw[:over])
	}
	_, _ = a.ring.Write(b)
}

// ByteFrequencyData fills dst with up to BinCount byte magnitudes.
func (a *Analyser) ByteFrequencyData(dst []uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loadFrame()
	a.analyse()

	bins := len(a.smoothed)
	if len(dst) < bins {
		bins = len(dst)
	}
	rangeDb := a.cfg.MaxDecibels - a.cfg.MinDecibels
	for k := 0; k < bins; k++ {
		db := toDecibels(a.smoothed[k])
		scaled := 255 * (db - a.cfg.MinDecibels) / rangeDb
		switch {
		case scaled < 0 || math.IsNaN(scaled):
			dst[k] = 0
		case scaled > 255:
			dst[k] = 255
		default:
			dst[k] = uint8(scaled)
		}
	}
}

// Reset clears the input window and the smoothing history.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ring.Reset()
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
}

// loadFrame copies the buffered samples into frame, right aligned and
// zero padded when fewer than FFTSize are buffered. The ring is left intact.
func (a *Analyser) loadFrame() {
	n := a.ring.Length()
	if n > len(a.raw) {
		n = len(a.raw)
	}
	n -= n % bytesPerSample
	if n > 0 {
		got, _ := a.ring.Read(a.raw[:n])
		_, _ = a.ring.Write(a.raw[:got])
		n = got
	}

	count := n / bytesPerSample
	pad := len(a.frame) - count
	for i := 0; i < pad; i++ {
		a.frame[i] = 0
	}
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint32(a.raw[i*bytesPerSample:])
		a.frame[pad+i] = float64(math.Float32frombits(bits))
	}
}

func (a *Analyser) analyse() {
	for i := range a.frame {
		a.frame[i] *= a.window[i]
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	tau := a.cfg.Smoothing
	scale := 1 / float64(a.cfg.FFTSize)
	for k := range a.smoothed {
		c := a.coeffs[k]
		mag := math.Hypot(real(c), imag(c)) * scale
		s := tau*a.smoothed[k] + (1-tau)*mag
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		a.smoothed[k] = s
	}
}

func toDecibels(linear float64) float64 {
	if linear <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(linear)
}
