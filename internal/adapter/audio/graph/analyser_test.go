package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tejashwikalptaru/truestream/internal/domain"
)

func tone(n, bin, fftSize int, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*float64(bin)*float64(i)/float64(fftSize)))
	}
	return out
}

func TestAnalyser_SilenceIsZero(t *testing.T) {
	a := NewAnalyser(domain.DefaultAnalyserConfig())
	dst := make([]uint8, a.BinCount())

	a.ByteFrequencyData(dst)
	for i, v := range dst {
		assert.Equal(t, uint8(0), v, "bin %d", i)
	}

	a.Write(make([]float32, 256))
	a.ByteFrequencyData(dst)
	for i, v := range dst {
		assert.Equal(t, uint8(0), v, "bin %d", i)
	}
}

func TestAnalyser_TonePeaksAtItsBin(t *testing.T) {
	cfg := domain.DefaultAnalyserConfig()
	a := NewAnalyser(cfg)
	a.Write(tone(cfg.FFTSize, 16, cfg.FFTSize, 1))

	dst := make([]uint8, cfg.BinCount())
	a.ByteFrequencyData(dst)

	peak := 0
	for i, v := range dst {
		if v > dst[peak] {
			peak = i
		}
	}
	assert.Equal(t, 16, peak)
	assert.Equal(t, uint8(255), dst[16])
	assert.Less(t, dst[100], dst[16])
}

func TestAnalyser_KeepsOnlyLatestWindow(t *testing.T) {
	cfg := domain.DefaultAnalyserConfig()
	a := NewAnalyser(cfg)

	a.Write(tone(4*cfg.FFTSize, 16, cfg.FFTSize, 1))
	dst := make([]uint8, cfg.BinCount())
	a.ByteFrequencyData(dst)
	assert.Equal(t, uint8(255), dst[16])

	// silence pushes the tone out of the window entirely
	for i := 0; i < 4; i++ {
		a.Write(make([]float32, cfg.FFTSize/2))
	}
	for i := 0; i < 200; i++ {
		a.ByteFrequencyData(dst)
	}
	assert.Equal(t, uint8(0), dst[16])
}

func TestAnalyser_SmoothingRampsGradually(t *testing.T) {
	cfg := domain.DefaultAnalyserConfig()
	a := NewAnalyser(cfg)
	a.Write(tone(cfg.FFTSize, 40, cfg.FFTSize, 0.001))

	dst := make([]uint8, cfg.BinCount())
	a.ByteFrequencyData(dst)
	first := dst[40]
	a.ByteFrequencyData(dst)
	second := dst[40]

	assert.Greater(t, second, first, "repeated frames converge upwards on a steady tone")
}

func TestAnalyser_ShortDestination(t *testing.T) {
	a := NewAnalyser(domain.DefaultAnalyserConfig())
	a.Write(tone(256, 4, 256, 1))

	dst := make([]uint8, 8)
	assert.NotPanics(t, func() { a.ByteFrequencyData(dst) })
	assert.Equal(t, uint8(255), dst[4])
}

func TestAnalyser_Reset(t *testing.T) {
	a := NewAnalyser(domain.DefaultAnalyserConfig())
	a.Write(tone(256, 16, 256, 1))
	a.Reset()

	dst := make([]uint8, a.BinCount())
	a.ByteFrequencyData(dst)
	assert.Equal(t, uint8(0), dst[16])
}
