// Package metadata reads track tags for the control panel.
package metadata

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/dhowden/tag"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// Reader extracts ID3, MP4, FLAC and Ogg tags with dhowden/tag.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a tag reader.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger.With(slog.String("service", "TagReader"))}
}

// ReadTags fills Title, Artist and Album of info from src.
// Untagged or unreadable sources leave info unchanged.
func (r *Reader) ReadTags(src domain.MediaSource, info domain.TrackInfo) domain.TrackInfo {
	if len(src.Data) < 11 {
		return info
	}

	md, err := tag.ReadFrom(bytes.NewReader(src.Data))
	if err != nil || md == nil {
		r.logger.Debug("no tags", slog.String("name", src.Name), slog.Any("reason", err))
		return info
	}

	if title := strings.TrimSpace(md.Title()); title != "" {
		info.Title = title
	}
	if artist := strings.TrimSpace(md.Artist()); artist != "" {
		info.Artist = artist
	}
	if album := strings.TrimSpace(md.Album()); album != "" {
		info.Album = album
	}
	r.logger.Debug("tags read",
		slog.String("name", src.Name),
		slog.String("format", string(md.Format())),
		slog.String("title", info.Title))
	return info
}

var _ ports.TagReader = (*Reader)(nil)
