// Package telemetry records experiment events and metrics with Comet.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/httpclient"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

const (
	serviceName = "telemetry"

	DefaultEndpoint = "https://www.comet.com/api/experiment"
	DefaultProject  = "truestream-visualizer"
	DefaultRate     = 5 // requests per second
)

// Config configures the Comet client. Without an APIKey it is disabled.
type Config struct {
	APIKey    string
	Endpoint  string
	Workspace string
	Project   string

	// RatePerSecond caps outgoing requests; bursts up to twice the rate.
	RatePerSecond float64
}

// Client posts events to {Endpoint}/log and metrics to {Endpoint}/log-metric.
//
// Thread-safe for concurrent use.
type Client struct {
	logger  *slog.Logger
	http    *httpclient.Client
	cfg     Config
	limiter *rate.Limiter
	session map[string]any

	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewClient creates a telemetry client.
func NewClient(logger *slog.Logger, client *httpclient.Client, cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Project == "" {
		cfg.Project = DefaultProject
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultRate
	}
	burst := int(2 * cfg.RatePerSecond)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		logger:  logger.With(slog.String("service", "Telemetry")),
		http:    client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		session: map[string]any{
			"os":       runtime.GOOS,
			"arch":     runtime.GOARCH,
			"runtime":  runtime.Version(),
			"platform": runtime.GOOS + "/" + runtime.GOARCH,
		},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

type eventPayload struct {
	ExperimentName string         `json:"experiment_name"`
	Timestamp      string         `json:"timestamp"`
	Data           map[string]any `json:"data"`
	Metadata       map[string]any `json:"metadata"`
}

type metricPayload struct {
	MetricName string  `json:"metric_name"`
	Value      float64 `json:"value"`
	Step       int     `json:"step"`
	Timestamp  string  `json:"timestamp"`
}

// Record logs a named event. It returns nil without a network call when
// the client is disabled.
func (c *Client) Record(ctx context.Context, name string, attrs map[string]any) error {
	if !c.Enabled() {
		return nil
	}
	return c.post(ctx, "record", "/log", eventPayload{
		ExperimentName: name,
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
		Data:           attrs,
		Metadata:       c.session,
	})
}

// RecordMetric logs a numeric metric at step.
func (c *Client) RecordMetric(ctx context.Context, name string, value float64, step int) error {
	if !c.Enabled() {
		return nil
	}
	return c.post(ctx, "record_metric", "/log-metric", metricPayload{
		MetricName: name,
		Value:      value,
		Step:       step,
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// RecordAudioEvent records "audio_<eventType>" with the source format and length.
func (c *Client) RecordAudioEvent(ctx context.Context, eventType, format string, length time.Duration) error {
	if format == "" {
		format = "unknown"
	}
	return c.Record(ctx, "audio_"+eventType, map[string]any{
		"type":         eventType,
		"audio_length": length.Seconds(),
		"audio_format": format,
		"timestamp":    time.Now().UnixMilli(),
	})
}

// RecordVisualizationEvent records "visualization_<eventType>" with its parameters.
func (c *Client) RecordVisualizationEvent(ctx context.Context, eventType string, params map[string]any) error {
	return c.Record(ctx, "visualization_"+eventType, map[string]any{
		"type":       eventType,
		"parameters": params,
		"timestamp":  time.Now().UnixMilli(),
	})
}

// Stats returns the number of delivered and failed requests.
func (c *Client) Stats() (sent, failed uint64) {
	return c.sent.Load(), c.failed.Load()
}

func (c *Client) post(ctx context.Context, op, path string, body any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		c.failed.Add(1)
		return domain.NewCollaboratorError(serviceName, op, 0, err)
	}

	q := url.Values{}
	q.Set("workspace", c.cfg.Workspace)
	q.Set("project", c.cfg.Project)
	target := c.cfg.Endpoint + path + "?" + q.Encode()

	resp, err := c.http.Post(ctx, target, "application/json", httpclient.BearerHeader(c.cfg.APIKey), body)
	if err == nil {
		err = httpclient.ReadJSON(resp, nil)
	}
	if err != nil {
		c.failed.Add(1)
		c.logger.Warn("telemetry request failed (non-critical)", slog.String("op", op), slog.Any("error", err))
		return domain.NewCollaboratorError(serviceName, op, httpclient.StatusCode(err), fmt.Errorf("post %s: %w", path, err))
	}

	c.sent.Add(1)
	c.logger.Debug("telemetry sent", slog.String("op", op))
	return nil
}

var _ ports.Telemetry = (*Client)(nil)
