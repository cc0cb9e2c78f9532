// Package aiprocess sends audio to a Friendli serverless endpoint for
// processing and feature analysis.
package aiprocess

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/httpclient"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

const (
	serviceName = "aiprocess"

	DefaultEndpoint = "https://api.friendli.ai/v1"
	defaultFileName = "audio.mp3"
	maxResponseSize = 256 << 20
)

// Config configures the processor. Without an APIKey it is disabled.
type Config struct {
	APIKey   string
	Endpoint string
}

// Client calls {Endpoint}/audio/process and {Endpoint}/audio/analyze.
type Client struct {
	logger *slog.Logger
	http   *httpclient.Client
	cfg    Config
}

// NewClient creates an AI processing client.
func NewClient(logger *slog.Logger, client *httpclient.Client, cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &Client{
		logger: logger.With(slog.String("service", "AIProcessor")),
		http:   client,
		cfg:    cfg,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

// Transform uploads src and returns the processed audio. A response that is
// not audio or video leaves src as the result.
func (c *Client) Transform(ctx context.Context, src domain.MediaSource) (domain.MediaSource, error) {
	if !c.Enabled() {
		return src, nil
	}

	resp, err := c.upload(ctx, "/audio/process", src)
	if err != nil {
		return src, c.fail("transform", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return src, c.fail("transform", httpclient.ReadJSON(resp, nil))
	}

	mimeType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if domain.KindOf(mimeType) == domain.KindUnknown {
		c.logger.Debug("processor returned no audio, keeping original",
			slog.String("name", src.Name), slog.String("content_type", mimeType))
		return src, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return src, c.fail("transform", err)
	}
	if len(data) == 0 {
		return src, c.fail("transform", domain.ErrEmptySource)
	}

	out := domain.NewMediaSource(src.Name, mimeType, data)
	c.logger.Info("audio processed",
		slog.String("name", src.Name),
		slog.Int64("in_bytes", src.Size),
		slog.Int64("out_bytes", out.Size))
	return out, nil
}

// Analyze uploads src and returns the extracted features, or nil.
func (c *Client) Analyze(ctx context.Context, src domain.MediaSource) (map[string]any, error) {
	if !c.Enabled() {
		return nil, nil
	}

	resp, err := c.upload(ctx, "/audio/analyze", src)
	if err != nil {
		return nil, c.fail("analyze", err)
	}

	var features map[string]any
	if err := httpclient.ReadJSON(resp, &features); err != nil {
		return nil, c.fail("analyze", err)
	}
	c.logger.Debug("audio analyzed", slog.String("name", src.Name), slog.Int("features", len(features)))
	return features, nil
}

func (c *Client) upload(ctx context.Context, path string, src domain.MediaSource) (*http.Response, error) {
	name := src.Name
	if name == "" {
		name = defaultFileName
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("audio", name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(src.Data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return c.http.Post(ctx, c.cfg.Endpoint+path, w.FormDataContentType(), httpclient.BearerHeader(c.cfg.APIKey), &body)
}

func (c *Client) fail(op string, err error) error {
	c.logger.Warn("ai processing failed (non-critical)", slog.String("op", op), slog.Any("error", err))
	return domain.NewCollaboratorError(serviceName, op, httpclient.StatusCode(err), fmt.Errorf("%s: %w", op, err))
}

var _ ports.AIProcessor = (*Client)(nil)
