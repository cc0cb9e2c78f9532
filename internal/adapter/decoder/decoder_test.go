package decoder

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/logger"
	"github.com/tejashwikalptaru/truestream/internal/testutil"
)

func TestRegistry_DecodesWAV(t *testing.T) {
	data := testutil.SineWAV(t, 8000, 2, 0.25, 440)
	r := NewRegistry(logger.NewTestLogger(), WAV{}, Vorbis{}, MP3{})

	s, err := r.Open(domain.NewMediaSource("tone.wav", "audio/wav", data))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 8000, s.Format().SampleRate)
	assert.Equal(t, 2, s.Format().Channels)

	total := 0
	var peak float32
	buf := make([]float32, 512)
	for {
		n, err := s.Read(buf)
		for _, v := range buf[:n] {
			assert.LessOrEqual(t, v, float32(1))
			assert.GreaterOrEqual(t, v, float32(-1))
			if v > peak {
				peak = v
			}
		}
		total += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, 2000*2, total)
	assert.InDelta(t, 16000.0/32768.0, peak, 0.01)
}

func TestRegistry_UnknownBytes(t *testing.T) {
	r := NewRegistry(logger.NewTestLogger(), WAV{}, Vorbis{}, MP3{})

	_, err := r.Open(domain.NewMediaSource("notes.mp4", "video/mp4", []byte("\x00\x00\x00\x18ftypmp42 not decodable")))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestRegistry_SniffedButCorrupt(t *testing.T) {
	r := NewRegistry(logger.NewTestLogger(), WAV{}, Vorbis{}, MP3{})

	_, err := r.Open(domain.NewMediaSource("bad.ogg", "audio/ogg", []byte("OggS garbage that is not a vorbis stream")))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

type stubDecoder struct{ called bool }

func (d *stubDecoder) Name() string      { return "stub" }
func (d *stubDecoder) Sniff([]byte) bool { return true }
func (d *stubDecoder) Decode(io.ReadSeeker) (Stream, error) {
	d.called = true
	return nil, io.ErrUnexpectedEOF
}

func TestRegistry_FallbackRunsLast(t *testing.T) {
	fb := &stubDecoder{}
	r := NewRegistry(logger.NewTestLogger(), WAV{})
	r.SetFallback(fb)

	wavData := testutil.SineWAV(t, 8000, 1, 0.05, 440)
	s, err := r.Open(domain.NewMediaSource("tone.wav", "audio/wav", wavData))
	require.NoError(t, err)
	s.Close()
	assert.False(t, fb.called)

	_, err = r.Open(domain.NewMediaSource("clip.webm", "video/webm", []byte{0x1A, 0x45, 0xDF, 0xA3}))
	assert.True(t, fb.called)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestSniff(t *testing.T) {
	assert.True(t, MP3{}.Sniff([]byte("ID3\x04\x00")))
	assert.True(t, MP3{}.Sniff([]byte{0xFF, 0xFB, 0x90}))
	assert.False(t, MP3{}.Sniff([]byte("RIFF")))
	assert.True(t, WAV{}.Sniff([]byte("RIFF\x24\x00\x00\x00WAVEfmt ")))
	assert.False(t, WAV{}.Sniff([]byte("RIFF\x24\x00\x00\x00AVI ")))
	assert.True(t, Vorbis{}.Sniff([]byte("OggS\x00")))
	assert.True(t, FFmpeg{}.Sniff(nil))
}

func TestInt16ToFloat(t *testing.T) {
	dst := make([]float32, 3)
	n := int16ToFloat(dst, []byte{0x00, 0x80, 0xFF, 0x7F, 0x00, 0x00, 0x01})

	assert.Equal(t, 3, n)
	assert.Equal(t, float32(-1), dst[0])
	assert.InDelta(t, 1.0, dst[1], 0.0001)
	assert.Equal(t, float32(0), dst[2])
}

func readAll(t *testing.T, s Stream) (int, error) {
	t.Helper()
	total := 0
	buf := make([]float32, 256)
	for {
		n, err := s.Read(buf)
		total += n
		if err != nil {
			return total, err
		}
	}
}

func TestFFmpeg_RejectedInputFailsDecode(t *testing.T) {
	ff := FFmpeg{Path: testutil.FakeFFmpeg(t, nil, "Invalid data found when processing input", 1)}

	s, err := ff.Decode(bytes.NewReader([]byte("not media")))
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Contains(t, err.Error(), "Invalid data found")
}

func TestFFmpeg_RejectedInputThroughRegistry(t *testing.T) {
	r := NewRegistry(logger.NewTestLogger(), WAV{}, Vorbis{}, MP3{})
	r.SetFallback(FFmpeg{Path: testutil.FakeFFmpeg(t, nil, "moov atom not found", 1)})

	_, err := r.Open(domain.NewMediaSource("clip.mp4", "video/mp4", []byte("\x00\x00\x00\x18ftypmp42")))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestFFmpeg_EmptyOutputFailsDecode(t *testing.T) {
	ff := FFmpeg{Path: testutil.FakeFFmpeg(t, nil, "", 0)}

	_, err := ff.Decode(bytes.NewReader([]byte("silent")))
	assert.Error(t, err)
}

func TestFFmpeg_CleanExitEndsWithEOF(t *testing.T) {
	pcm := make([]byte, 4*1000)
	ff := FFmpeg{Path: testutil.FakeFFmpeg(t, pcm, "", 0)}

	s, err := ff.Decode(bytes.NewReader([]byte("media")))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 48000, s.Format().SampleRate)
	assert.Equal(t, 2, s.Format().Channels)
	n, err := readAll(t, s)
	assert.Equal(t, 2000, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFFmpeg_FailureMidStreamIsNotEOF(t *testing.T) {
	pcm := make([]byte, 4*100)
	ff := FFmpeg{Path: testutil.FakeFFmpeg(t, pcm, "Error while decoding stream", 1)}

	s, err := ff.Decode(bytes.NewReader([]byte("media")))
	require.NoError(t, err)
	defer s.Close()

	n, err := readAll(t, s)
	assert.Equal(t, 200, n)
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.Contains(t, err.Error(), "Error while decoding stream")
}

func TestFFmpeg_CloseRemovesInput(t *testing.T) {
	ff := FFmpeg{Path: testutil.FakeFFmpeg(t, make([]byte, 64), "", 0)}

	s, err := ff.Decode(bytes.NewReader([]byte("media")))
	require.NoError(t, err)
	input := s.(*ffmpegStream).input
	require.FileExists(t, input)

	require.NoError(t, s.Close())
	assert.NoFileExists(t, input)
	assert.NoError(t, s.Close())
}
