package ports

import (
	"context"
	"time"

	"github.com/tejashwikalptaru/truestream/internal/domain"
)

// Telemetry records experiment events and metrics.
// Without an API key every method returns immediately without touching the network.
type Telemetry interface {
	// Enabled reports whether an API key is configured.
	Enabled() bool

	// Record logs a named event with attributes.
	Record(ctx context.Context, name string, attrs map[string]any) error

	// RecordMetric logs a numeric metric at a step.
	RecordMetric(ctx context.Context, name string, value float64, step int) error

	// RecordAudioEvent logs "audio_<eventType>" with the source format and
	// how long it played.
	RecordAudioEvent(ctx context.Context, eventType, format string, length time.Duration) error

	// RecordVisualizationEvent logs "visualization_<eventType>" with params.
	RecordVisualizationEvent(ctx context.Context, eventType string, params map[string]any) error
}

// AIProcessor sends audio to an inference service.
type AIProcessor interface {
	// Enabled reports whether an API key is configured.
	Enabled() bool

	// Transform returns a processed copy of src. On failure src is returned
	// unchanged along with the error; a disabled processor returns src and nil.
	Transform(ctx context.Context, src domain.MediaSource) (domain.MediaSource, error)

	// Analyze returns audio features, or nil when unavailable.
	Analyze(ctx context.Context, src domain.MediaSource) (map[string]any, error)
}

// LiveCoder evaluates live-coding patterns into renderable audio.
type LiveCoder interface {
	// Evaluate renders code. On failure it returns an empty track and the error.
	Evaluate(ctx context.Context, code string) (domain.LiveCodeTrack, error)
}

// SourceFetcher downloads remote media.
type SourceFetcher interface {
	// Fetch downloads url into a MediaSource. The fetch is bounded by ctx.
	Fetch(ctx context.Context, url string) (domain.MediaSource, error)
}

// TagReader extracts title, artist and album tags.
type TagReader interface {
	// ReadTags fills the tag fields of info from src. Sources without
	// readable tags return info unchanged.
	ReadTags(src domain.MediaSource, info domain.TrackInfo) domain.TrackInfo
}

// ErrorReporter forwards unexpected errors to an external tracker.
type ErrorReporter interface {
	// Report sends err with tags. Implementations must not block.
	Report(err error, tags map[string]string)

	// Flush waits up to timeout for pending reports.
	Flush(timeout time.Duration) bool
}
