package decoder

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// FFmpeg decodes anything ffmpeg understands by running it over a temporary
// copy of the source and reading 48 kHz stereo s16le from its stdout.
type FFmpeg struct {
	// Path is the ffmpeg binary.
	Path string
}

// LookupFFmpeg finds ffmpeg on PATH.
func LookupFFmpeg() (FFmpeg, bool) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return FFmpeg{}, false
	}
	return FFmpeg{Path: path}, true
}

// Name returns "ffmpeg".
func (FFmpeg) Name() string { return "ffmpeg" }

// Sniff accepts anything; ffmpeg is the decoder of last resort.
func (FFmpeg) Sniff([]byte) bool { return true }

// Decode copies r to a temporary file, since containers such as MP4 may need
// seeking, and starts ffmpeg on it. It blocks until the first PCM bytes
// arrive so inputs ffmpeg rejects fail here rather than at end of stream.
func (f FFmpeg) Decode(r io.ReadSeeker) (Stream, error) {
	input, err := spool(r)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(f.Path,
		"-nostdin",
		"-i", input,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", "48000",
		"-ac", "2",
		"-loglevel", "error",
		"pipe:1",
	)
	s := &ffmpegStream{
		cmd:    cmd,
		input:  input,
		format: ports.PCMFormat{SampleRate: 48000, Channels: 2},
	}
	cmd.Stderr = &s.stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		_ = os.Remove(input)
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = os.Remove(input)
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}
	s.out = out
	s.r = bufio.NewReader(out)

	if _, err := s.r.Peek(1); err != nil {
		waitErr := s.wait()
		_ = s.Close()
		if waitErr != nil {
			return nil, waitErr
		}
		return nil, errors.New("ffmpeg: no audio decoded")
	}
	return s, nil
}

// spool writes r to a temporary file and returns its path.
func spool(r io.Reader) (string, error) {
	f, err := os.CreateTemp("", "truestream-ffmpeg-*")
	if err != nil {
		return "", fmt.Errorf("ffmpeg input: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("ffmpeg input: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("ffmpeg input: %w", err)
	}
	return f.Name(), nil
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	input  string
	out    io.ReadCloser
	r      *bufio.Reader
	stderr bytes.Buffer
	format ports.PCMFormat
	buf    []byte
	odd    []byte // carry of a split sample

	waitOnce sync.Once
	waitErr  error

	closeOnce sync.Once
}

func (s *ffmpegStream) Format() ports.PCMFormat { return s.format }

// Read returns io.EOF only when ffmpeg exited cleanly. A non-zero exit is
// reported with ffmpeg's stderr.
func (s *ffmpegStream) Read(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	k := copy(s.buf, s.odd)
	s.odd = s.odd[:0]
	n, err := s.r.Read(s.buf[k:])
	n += k
	if n%2 == 1 {
		s.odd = append(s.odd, s.buf[n-1])
		n--
	}

	samples := int16ToFloat(dst, s.buf[:n])
	if err == io.EOF {
		if samples > 0 {
			return samples, nil
		}
		if werr := s.wait(); werr != nil {
			return 0, werr
		}
	}
	return samples, err
}

// wait reaps the process once and turns a failed exit into an error.
func (s *ffmpegStream) wait() error {
	s.waitOnce.Do(func() {
		err := s.cmd.Wait()
		if err == nil {
			return
		}
		msg := strings.TrimSpace(s.stderr.String())
		if msg == "" {
			s.waitErr = fmt.Errorf("ffmpeg: %w", err)
			return
		}
		s.waitErr = fmt.Errorf("ffmpeg: %w: %s", err, msg)
	})
	return s.waitErr
}

// Close stops ffmpeg if it is still running and removes the temporary input.
func (s *ffmpegStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.out.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.wait()
		err = os.Remove(s.input)
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
	})
	return err
}
