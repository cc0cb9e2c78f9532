// Package fetch downloads remote audio for the URL source tab.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/httpclient"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

const (
	// DefaultName and DefaultMIMEType label a download whose response does
	// not identify itself as audio or video.
	DefaultName     = "audio.mp3"
	DefaultMIMEType = "audio/mpeg"

	DefaultMaxSize  = 256 << 20
	DefaultCacheTTL = 10 * time.Minute
)

// Config configures a Fetcher.
type Config struct {
	MaxSize  int64
	CacheTTL time.Duration
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{MaxSize: DefaultMaxSize, CacheTTL: DefaultCacheTTL}
}

// Fetcher downloads a URL into a MediaSource. Successful downloads are
// cached by URL for CacheTTL; a zero TTL disables the cache.
type Fetcher struct {
	logger  *slog.Logger
	client  *httpclient.Client
	cache   *cache.Cache
	maxSize int64
}

// NewFetcher creates a fetcher.
func NewFetcher(logger *slog.Logger, client *httpclient.Client, cfg Config) *Fetcher {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	f := &Fetcher{
		logger:  logger.With(slog.String("service", "SourceFetcher")),
		client:  client,
		maxSize: cfg.MaxSize,
	}
	if cfg.CacheTTL > 0 {
		f.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return f
}

// Fetch downloads rawURL. Only http and https URLs are accepted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (domain.MediaSource, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return domain.MediaSource{}, domain.NewValidationError("url", rawURL, domain.MsgEmptyURL, domain.ErrEmptyURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.MediaSource{}, domain.NewValidationError("url", rawURL, domain.MsgURLFailed, err)
	}

	if f.cache != nil {
		if v, ok := f.cache.Get(rawURL); ok {
			f.logger.Debug("fetch cache hit", slog.String("url", rawURL))
			return v.(domain.MediaSource), nil
		}
	}

	start := time.Now()
	resp, err := f.client.Get(ctx, rawURL, nil)
	if err != nil {
		return domain.MediaSource{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.MediaSource{}, fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}
	if resp.ContentLength > f.maxSize {
		return domain.MediaSource{}, fmt.Errorf("fetch %s: %w", rawURL, domain.ErrSourceTooLarge)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return domain.MediaSource{}, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if int64(len(data)) > f.maxSize {
		return domain.MediaSource{}, fmt.Errorf("fetch %s: %w", rawURL, domain.ErrSourceTooLarge)
	}
	if len(data) == 0 {
		return domain.MediaSource{}, fmt.Errorf("fetch %s: %w", rawURL, domain.ErrEmptySource)
	}

	name, mimeType := describe(u, resp.Header)
	src := domain.NewMediaSource(name, mimeType, data)

	if f.cache != nil {
		f.cache.SetDefault(rawURL, src)
	}
	f.logger.Info("source fetched",
		slog.String("url", rawURL),
		slog.String("mime", mimeType),
		slog.Int("bytes", len(data)),
		slog.Duration("took", time.Since(start)))
	return src, nil
}

// Cached returns the number of cached downloads.
func (f *Fetcher) Cached() int {
	if f.cache == nil {
		return 0
	}
	return f.cache.ItemCount()
}

// Flush empties the cache.
func (f *Fetcher) Flush() {
	if f.cache != nil {
		f.cache.Flush()
	}
}

// describe names a download. Responses that are not audio or video are
// labelled as MP3 so the element tries to play them anyway.
func describe(u *url.URL, h http.Header) (name, mimeType string) {
	mimeType, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil || domain.KindOf(mimeType) == domain.KindUnknown {
		return DefaultName, DefaultMIMEType
	}

	name = path.Base(u.Path)
	if name == "." || name == "/" || path.Ext(name) == "" {
		name = DefaultName
	}
	return name, mimeType
}

var _ ports.SourceFetcher = (*Fetcher)(nil)
