// Package decoder turns encoded media bytes into interleaved float32 PCM.
//
// Pure-Go decoders handle MP3, WAV and Ogg Vorbis. Containers none of them
// recognize (MP4, WebM, AAC ...) go to an ffmpeg subprocess when the binary
// is on PATH.
package decoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// sniffLen is how many leading bytes decoders get to recognize a format.
const sniffLen = 64

// Stream is a decoded PCM stream.
type Stream interface {
	// Format returns the sample rate and channel count.
	Format() ports.PCMFormat

	// Read fills dst with interleaved samples in [-1, 1] and returns the
	// number of values written. It returns io.EOF once the stream is drained.
	Read(dst []float32) (int, error)

	// Close releases decoder resources.
	Close() error
}

// Decoder recognizes and opens one encoding.
type Decoder interface {
	// Name identifies the decoder in logs.
	Name() string

	// Sniff reports whether header looks like this decoder's format.
	Sniff(header []byte) bool

	// Decode opens a stream over r.
	Decode(r io.ReadSeeker) (Stream, error)
}

// Registry picks a decoder for a media source.
type Registry struct {
	logger   *slog.Logger
	decoders []Decoder
	fallback Decoder
}

// NewRegistry creates a registry that tries decoders in order.
func NewRegistry(logger *slog.Logger, decoders ...Decoder) *Registry {
	return &Registry{
		logger:   logger,
		decoders: decoders,
	}
}

// NewDefaultRegistry registers the MP3, WAV and Vorbis decoders and, when
// ffmpeg is installed, the ffmpeg fallback.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger, WAV{}, Vorbis{}, MP3{})
	if ff, ok := LookupFFmpeg(); ok {
		r.SetFallback(ff)
	} else {
		logger.Info("ffmpeg not found, video containers are unsupported")
	}
	return r
}

// SetFallback sets the decoder used when no registered decoder sniffs the bytes.
func (r *Registry) SetFallback(d Decoder) {
	r.fallback = d
}

// Open decodes src with the first decoder that recognizes it.
func (r *Registry) Open(src domain.MediaSource) (Stream, error) {
	header := src.Data
	if len(header) > sniffLen {
		header = header[:sniffLen]
	}

	for _, d := range r.decoders {
		if !d.Sniff(header) {
			continue
		}
		s, err := d.Decode(bytes.NewReader(src.Data))
		if err != nil {
			return nil, fmt.Errorf("%s decode %q: %w: %w", d.Name(), src.Name, domain.ErrUnsupportedFormat, err)
		}
		r.logger.Debug("decoder selected",
			slog.String("decoder", d.Name()),
			slog.String("name", src.Name),
			slog.Int("sample_rate", s.Format().SampleRate),
			slog.Int("channels", s.Format().Channels))
		return s, nil
	}

	if r.fallback != nil {
		s, err := r.fallback.Decode(bytes.NewReader(src.Data))
		if err != nil {
			return nil, fmt.Errorf("%s decode %q: %w: %w", r.fallback.Name(), src.Name, domain.ErrUnsupportedFormat, err)
		}
		return s, nil
	}

	return nil, fmt.Errorf("decode %q (%s): %w", src.Name, src.MIMEType, domain.ErrUnsupportedFormat)
}

// int16ToFloat converts little-endian int16 PCM bytes into dst and returns
// the number of samples converted.
func int16ToFloat(dst []float32, b []byte) int {
	n := len(b) / 2
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(b[2*i:]))) / 32768.0
	}
	return n
}
