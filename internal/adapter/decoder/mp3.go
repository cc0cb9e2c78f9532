package decoder

import (
	"bytes"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// MP3 decodes MPEG-1/2 Layer III through go-mp3.
type MP3 struct{}

// Name returns "mp3".
func (MP3) Name() string { return "mp3" }

// Sniff accepts an ID3v2 tag or a bare frame sync word.
func (MP3) Sniff(header []byte) bool {
	if bytes.HasPrefix(header, []byte("ID3")) {
		return true
	}
	return len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0
}

// Decode opens an MP3 stream. go-mp3 always produces 16-bit stereo.
func (MP3) Decode(r io.ReadSeeker) (Stream, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return &mp3Stream{
		dec:    dec,
		format: ports.PCMFormat{SampleRate: dec.SampleRate(), Channels: 2},
	}, nil
}

type mp3Stream struct {
	dec    *gomp3.Decoder
	format ports.PCMFormat
	buf    []byte
}

func (s *mp3Stream) Format() ports.PCMFormat { return s.format }
func (s *mp3Stream) Close() error            { return nil }

func (s *mp3Stream) Read(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := io.ReadFull(s.dec, s.buf)
	samples := int16ToFloat(dst, s.buf[:n])
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	if samples == 0 && err == nil {
		err = io.EOF
	}
	return samples, err
}
