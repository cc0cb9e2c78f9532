package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// WAV decodes RIFF/WAVE PCM through go-audio/wav.
type WAV struct{}

// Name returns "wav".
func (WAV) Name() string { return "wav" }

// Sniff accepts a RIFF header with the WAVE form type.
func (WAV) Sniff(header []byte) bool {
	return len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE"))
}

// Decode opens a WAV stream positioned at the first PCM sample.
func (WAV) Decode(r io.ReadSeeker) (Stream, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("invalid wav file")
	}
	if err := dec.Rewind(); err != nil {
		return nil, err
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth != 8 && bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	offset := 0
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		offset = 128
	}

	return &wavStream{
		dec: dec,
		format: ports.PCMFormat{
			SampleRate: int(dec.SampleRate),
			Channels:   int(dec.NumChans),
		},
		scale:  float32(int64(1) << (bitDepth - 1)),
		offset: offset,
	}, nil
}

type wavStream struct {
	dec    *wav.Decoder
	format ports.PCMFormat
	scale  float32
	offset int
	buf    *audio.IntBuffer
}

func (s *wavStream) Format() ports.PCMFormat { return s.format }
func (s *wavStream) Close() error            { return nil }

func (s *wavStream) Read(dst []float32) (int, error) {
	if s.buf == nil || len(s.buf.Data) < len(dst) {
		s.buf = &audio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: &audio.Format{NumChannels: s.format.Channels, SampleRate: s.format.SampleRate},
		}
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i := 0; i < n; i++ {
		dst[i] = float32(s.buf.Data[i]-s.offset) / s.scale
	}
	return n, nil
}
