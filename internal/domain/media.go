// Package domain contains the core models of the truestream visualizer.
// Nothing in this package depends on infrastructure: media sources, object URL
// handles, frequency snapshots and the playback lifecycle are plain values.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// MediaKind classifies a MediaSource by its declared MIME type.
type MediaKind int

const (
	// KindUnknown is anything that is neither audio nor video. The pipeline rejects it.
	KindUnknown MediaKind = iota
	// KindAudio is an audio/* source, played through an audio-only element.
	KindAudio
	// KindVideo is a video/* source. Its element is attached off-screen.
	KindVideo
)

// String returns the kind name.
func (k MediaKind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// KindOf derives the media kind from a MIME type such as "audio/mpeg".
// Parameters after ';' are ignored.
func KindOf(mimeType string) MediaKind {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case strings.HasPrefix(mt, "audio/"):
		return KindAudio
	case strings.HasPrefix(mt, "video/"):
		return KindVideo
	default:
		return KindUnknown
	}
}

// MediaSource is a user-supplied blob of encoded media.
// It is immutable once accepted and consumed once by the pipeline.
type MediaSource struct {
	// Name is the display name (file name, or a default for fetched sources)
	Name string

	// MIMEType is the declared content type, e.g. "audio/mpeg" or "video/mp4"
	MIMEType string

	// Size is the byte length of Data
	Size int64

	// Data holds the encoded bytes
	Data []byte
}

// NewMediaSource creates a MediaSource and fills in its size.
func NewMediaSource(name, mimeType string, data []byte) MediaSource {
	return MediaSource{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		Data:     data,
	}
}

// Kind returns the media kind of the source.
func (s MediaSource) Kind() MediaKind {
	return KindOf(s.MIMEType)
}

// Playable reports whether the pipeline accepts this source.
func (s MediaSource) Playable() bool {
	return s.Kind() != KindUnknown
}

// ObjectURL is an opaque handle that makes an in-memory MediaSource
// addressable by a media element. Handles hold the source bytes alive
// until they are released.
type ObjectURL string

// NoObjectURL is the null handle. Releasing it is a no-op.
const NoObjectURL ObjectURL = ""

// IsValid reports whether the handle is non-null.
func (u ObjectURL) IsValid() bool {
	return u != NoObjectURL
}

// String returns the handle text.
func (u ObjectURL) String() string {
	return string(u)
}

// ElementID identifies one media element instance for its lifetime.
// IDs are never reused within a process, so a stale event or frame callback
// can always be told apart from one belonging to the current element.
type ElementID uint64

// FrequencySnapshot is one frame of analyser output: a byte magnitude per
// frequency bin, 0..255, low frequencies first.
type FrequencySnapshot []uint8

// Clone returns an independent copy of the snapshot.
func (s FrequencySnapshot) Clone() FrequencySnapshot {
	if s == nil {
		return nil
	}
	out := make(FrequencySnapshot, len(s))
	copy(out, s)
	return out
}

// Mean returns the average bin value normalized to 0..1.
// An empty snapshot has a mean of zero.
func (s FrequencySnapshot) Mean() float64 {
	if len(s) == 0 {
		return 0
	}
	var sum int
	for _, v := range s {
		sum += int(v)
	}
	return float64(sum) / float64(len(s)) / 255.0
}

// Normalized returns bin i scaled to 0..1, or zero when i is out of range.
func (s FrequencySnapshot) Normalized(i int) float64 {
	if i < 0 || i >= len(s) {
		return 0
	}
	return float64(s[i]) / 255.0
}

// AnalyserConfig holds the analyser node parameters.
type AnalyserConfig struct {
	// FFTSize is the analysis window length in samples. Must be a power of two in [32, 32768].
	FFTSize int

	// Smoothing is the time-averaging constant in [0, 1).
	Smoothing float64

	// MinDecibels maps to byte value 0.
	MinDecibels float64

	// MaxDecibels maps to byte value 255.
	MaxDecibels float64
}

// DefaultAnalyserConfig returns the analyser settings used by the visualizer:
// 256-point FFT (128 bins) with 0.8 smoothing.
func DefaultAnalyserConfig() AnalyserConfig {
	return AnalyserConfig{
		FFTSize:     256,
		Smoothing:   0.8,
		MinDecibels: -100,
		MaxDecibels: -30,
	}
}

// BinCount returns the number of frequency bins, FFTSize/2.
func (c AnalyserConfig) BinCount() int {
	return c.FFTSize / 2
}

// Validate checks the analyser parameters.
func (c AnalyserConfig) Validate() error {
	if c.FFTSize < 32 || c.FFTSize > 32768 || c.FFTSize&(c.FFTSize-1) != 0 {
		return NewValidationError("fft_size", c.FFTSize, "must be a power of two between 32 and 32768", nil)
	}
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		return NewValidationError("smoothing", c.Smoothing, "must be in [0, 1)", nil)
	}
	if c.MinDecibels >= c.MaxDecibels {
		return NewValidationError("min_decibels", c.MinDecibels, "must be below max_decibels", nil)
	}
	return nil
}

// TrackInfo describes the loaded source for the control panel.
type TrackInfo struct {
	Name     string
	MIMEType string
	Kind     MediaKind
	Size     int64

	// Tag fields, empty when the container carries none
	Title  string
	Artist string
	Album  string
}

// NewTrackInfo builds the track info of a source without tag data.
func NewTrackInfo(src MediaSource) TrackInfo {
	return TrackInfo{
		Name:     src.Name,
		MIMEType: src.MIMEType,
		Kind:     src.Kind(),
		Size:     src.Size,
	}
}

// DisplayName prefers the tagged title over the file name.
func (t TrackInfo) DisplayName() string {
	switch {
	case t.Title != "" && t.Artist != "":
		return fmt.Sprintf("%s - %s", t.Artist, t.Title)
	case t.Title != "":
		return t.Title
	default:
		return t.Name
	}
}

// SizeMB formats the size in megabytes with two decimals, e.g. "3.42 MB".
func (t TrackInfo) SizeMB() string {
	return fmt.Sprintf("%.2f MB", float64(t.Size)/1024/1024)
}

// LiveCodeTrack is the result of evaluating a live-coding pattern.
// An empty AudioURL means nothing was rendered.
type LiveCodeTrack struct {
	AudioURL string
	Code     string
	Duration time.Duration
}

// IsEmpty reports whether the evaluation produced no playable audio.
func (t LiveCodeTrack) IsEmpty() bool {
	return t.AudioURL == ""
}
