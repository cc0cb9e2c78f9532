package service

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// Telemetry event names.
const (
	EventFileUpload   = "file_upload"
	EventURLLoad      = "url_load"
	EventLiveCodeLoad = "livecode_load"
)

// SourceDeps are the collaborators of a SourceService. Every collaborator
// is optional; a nil one behaves as disabled.
type SourceDeps struct {
	Fetcher   ports.SourceFetcher
	Telemetry ports.Telemetry
	AI        ports.AIProcessor
	LiveCoder ports.LiveCoder
	Bus       ports.EventBus

	// CollaboratorTimeout bounds each detached collaborator call
	CollaboratorTimeout time.Duration
}

// SourceService turns user selections into media sources for the pipeline.
// It validates input, fetches remote audio and fires the collaborator
// calls that accompany each load.
type SourceService struct {
	logger   *slog.Logger
	pipeline *PipelineService
	deps     SourceDeps
	tasks    *detachedTasks
	recorder *playbackRecorder

	// mimeTypes maps lower-case file extensions to MIME types
	mimeTypes map[string]string
}

// defaultMIMETypes covers the formats the decoders read. The built-in
// table of package mime has no audio or video entries.
var defaultMIMETypes = map[string]string{
	// Audio
	".mp3":  "audio/mpeg",
	".mp2":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".aac":  "audio/aac",
	".m4a":  "audio/mp4",
	".opus": "audio/opus",
	".aif":  "audio/aiff",
	".aiff": "audio/aiff",
	// Video
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

// NewSourceService creates a source service feeding pipeline.
func NewSourceService(logger *slog.Logger, pipeline *PipelineService, deps SourceDeps) *SourceService {
	logger = logger.With(slog.String("service", "source"))
	s := &SourceService{
		logger:    logger,
		pipeline:  pipeline,
		deps:      deps,
		tasks:     newDetachedTasks(logger, deps.CollaboratorTimeout),
		mimeTypes: defaultMIMETypes,
	}
	if deps.Bus != nil && deps.Telemetry != nil && deps.Telemetry.Enabled() {
		s.recorder = newPlaybackRecorder(deps.Telemetry, deps.Bus, s.tasks)
	}
	return s
}

// MIMEType returns the declared type of a file, judged by its extension.
// Unknown extensions map to "application/octet-stream".
func (s *SourceService) MIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := s.mimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "application/octet-stream"
}

// Extensions returns the file extensions with a known media type, sorted.
func (s *SourceService) Extensions() []string {
	exts := make([]string, 0, len(s.mimeTypes))
	for ext := range s.mimeTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// LoadFile reads a local file and loads it.
func (s *SourceService) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		perr := domain.NewPipelineError("read_file", domain.CategorySetup, filepath.Base(path), err)
		s.logger.Warn("failed to read file", slog.String("path", path), slog.Any("error", err))
		s.notice(perr)
		return perr
	}
	return s.LoadUpload(domain.NewMediaSource(filepath.Base(path), s.MIMEType(path), data))
}

// LoadUpload hands an uploaded source to the pipeline and records the
// upload. Rejection and setup notices come from the pipeline.
func (s *SourceService) LoadUpload(src domain.MediaSource) error {
	if err := s.pipeline.LoadNewSource(src); err != nil {
		return err
	}
	s.record(EventFileUpload, map[string]any{
		"filename": src.Name,
		"size":     src.Size,
	})
	return nil
}

// Drop loads the first of the dropped sources. Dropping nothing is a no-op.
func (s *SourceService) Drop(sources []domain.MediaSource) error {
	if len(sources) == 0 {
		return nil
	}
	if len(sources) > 1 {
		s.logger.Debug("ignoring extra dropped files", slog.Int("count", len(sources)-1))
	}
	return s.LoadUpload(sources[0])
}

// DropFiles loads the first of the dropped file paths.
func (s *SourceService) DropFiles(paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	first := paths[0]
	if mimeType := s.MIMEType(first); domain.KindOf(mimeType) == domain.KindUnknown {
		// Rejected without reading the file.
		return s.pipeline.LoadNewSource(domain.NewMediaSource(filepath.Base(first), mimeType, nil))
	}
	return s.LoadFile(first)
}

// LoadURL fetches remote audio and loads it. The caller's context bounds
// the fetch only. The fetched bytes are also sent to the AI processor in
// the background; its result is logged and never replaces the source.
func (s *SourceService) LoadURL(ctx context.Context, rawURL string) error {
	if s.deps.Fetcher == nil {
		err := domain.NewPipelineError("fetch", domain.CategorySetup, rawURL, domain.ErrCollaboratorDisabled)
		s.notice(err)
		return err
	}

	src, err := s.deps.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		s.logger.Warn("failed to fetch source", slog.String("url", rawURL), slog.Any("error", err))
		if domain.CategoryOf(err) == domain.CategoryValidation {
			s.notice(err)
		} else {
			s.publishNotice(domain.MsgURLFailed, domain.CategorySetup, err)
		}
		return err
	}

	s.process(src)

	if err := s.pipeline.LoadNewSource(src); err != nil {
		return err
	}
	s.record(EventURLLoad, map[string]any{"url": strings.TrimSpace(rawURL)})
	return nil
}

// LoadLiveCode evaluates a live-coding pattern and loads the rendered
// audio. A failed or empty evaluation loads nothing and shows nothing.
func (s *SourceService) LoadLiveCode(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		err := domain.NewValidationError("code", code, domain.MsgEmptyCode, domain.ErrEmptyCode)
		s.notice(err)
		return err
	}
	if s.deps.LiveCoder == nil {
		s.logger.Debug("live coding disabled")
		return nil
	}

	track, err := s.deps.LiveCoder.Evaluate(ctx, code)
	if err != nil {
		s.logger.Warn("live code evaluation failed", slog.Any("error", err))
		track = domain.LiveCodeTrack{}
	}
	if track.IsEmpty() {
		s.logger.Info("live code produced no audio")
		return nil
	}
	if s.deps.Fetcher == nil {
		return nil
	}

	src, err := s.deps.Fetcher.Fetch(ctx, track.AudioURL)
	if err != nil {
		cerr := domain.NewCollaboratorError("livecode", "fetch", 0, err)
		s.logger.Warn("failed to fetch rendered audio",
			slog.String("url", track.AudioURL),
			slog.Any("error", err))
		return cerr
	}

	if err := s.pipeline.LoadNewSource(src); err != nil {
		return err
	}
	s.record(EventLiveCodeLoad, map[string]any{
		"code":     code,
		"duration": track.Duration.Seconds(),
	})
	return nil
}

// Shutdown stops following the pipeline, stops accepting collaborator work
// and waits up to timeout for calls in flight.
func (s *SourceService) Shutdown(timeout time.Duration) bool {
	if s.recorder != nil {
		s.recorder.close()
	}
	return s.tasks.Close(timeout)
}

// process runs the AI transform and analysis of a fetched source in the background.
func (s *SourceService) process(src domain.MediaSource) {
	ai := s.deps.AI
	if ai == nil || !ai.Enabled() {
		return
	}

	s.tasks.Go("ai_transform", func(ctx context.Context) error {
		out, err := ai.Transform(ctx, src)
		if err != nil {
			return err
		}
		s.logger.Debug("ai transform finished",
			slog.String("name", out.Name),
			slog.String("mime", out.MIMEType),
			slog.Int64("size", out.Size))
		return nil
	})
	s.tasks.Go("ai_analyze", func(ctx context.Context) error {
		features, err := ai.Analyze(ctx, src)
		if err != nil {
			return err
		}
		s.logger.Debug("ai analysis finished", slog.Int("features", len(features)))
		return nil
	})
}

// record sends a telemetry event in the background.
func (s *SourceService) record(name string, attrs map[string]any) {
	t := s.deps.Telemetry
	if t == nil || !t.Enabled() {
		return
	}
	s.tasks.Go("telemetry:"+name, func(ctx context.Context) error {
		if err := t.Record(ctx, name, attrs); err != nil {
			return fmt.Errorf("record %s: %w", name, err)
		}
		return nil
	})
}

func (s *SourceService) notice(err error) {
	s.publishNotice(domain.UserMessage(err), domain.CategoryOf(err), err)
}

func (s *SourceService) publishNotice(message string, category domain.ErrorCategory, err error) {
	if message == "" || s.deps.Bus == nil {
		return
	}
	s.deps.Bus.Publish(domain.NewNoticeEvent(message, category, err))
}
