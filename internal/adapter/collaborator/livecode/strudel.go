// Package livecode evaluates Strudel live-coding patterns.
package livecode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/httpclient"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

const (
	serviceName = "livecode"

	DefaultEndpoint = "https://strudel.cc/api/evaluate"
)

// Config configures the evaluator.
type Config struct {
	Endpoint string
}

// Client posts {"code": ...} to the evaluate endpoint and expects the
// rendered audio location back.
type Client struct {
	logger   *slog.Logger
	http     *httpclient.Client
	endpoint string
}

// NewClient creates a live-coding client.
func NewClient(logger *slog.Logger, client *httpclient.Client, cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &Client{
		logger:   logger.With(slog.String("service", "LiveCoder")),
		http:     client,
		endpoint: cfg.Endpoint,
	}
}

type evaluateResponse struct {
	AudioURL string  `json:"audioUrl"`
	Code     string  `json:"code"`
	Duration float64 `json:"duration"` // seconds
}

// Evaluate renders code. Failures return an empty track that still carries
// the code.
func (c *Client) Evaluate(ctx context.Context, code string) (domain.LiveCodeTrack, error) {
	if strings.TrimSpace(code) == "" {
		return domain.LiveCodeTrack{}, domain.NewValidationError("code", code, domain.MsgEmptyCode, domain.ErrEmptyCode)
	}
	empty := domain.LiveCodeTrack{Code: code}

	start := time.Now()
	resp, err := c.http.Post(ctx, c.endpoint, "application/json", nil, map[string]string{"code": code})
	if err != nil {
		return empty, c.fail(err)
	}
	var out evaluateResponse
	if err := httpclient.ReadJSON(resp, &out); err != nil {
		return empty, c.fail(err)
	}

	track := domain.LiveCodeTrack{
		AudioURL: strings.TrimSpace(out.AudioURL),
		Code:     code,
		Duration: time.Duration(out.Duration * float64(time.Second)),
	}
	c.logger.Info("pattern evaluated",
		slog.Bool("rendered", !track.IsEmpty()),
		slog.Duration("length", track.Duration),
		slog.Duration("took", time.Since(start)))
	return track, nil
}

func (c *Client) fail(err error) error {
	c.logger.Warn("live code evaluation failed", slog.Any("error", err))
	return domain.NewCollaboratorError(serviceName, "evaluate", httpclient.StatusCode(err), fmt.Errorf("evaluate: %w", err))
}

var _ ports.LiveCoder = (*Client)(nil)
