// Package metrics exposes pipeline state as Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tejashwikalptaru/truestream/internal/ports"
)

const namespace = "truestream"

// Metrics holds the pipeline and HTTP collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	live       *prometheus.GaugeVec
	loads      *prometheus.CounterVec
	teardowns  prometheus.Counter
	rejections *prometheus.CounterVec
	frames     prometheus.Counter
	notices    *prometheus.CounterVec
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// New creates and registers the collectors. A nil registry gets a fresh one.
func New(registry *prometheus.Registry) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,
		live: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_resources",
			Help:      "Number of live pipeline resources by kind",
		}, []string{"resource"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_loads_total",
			Help:      "Sources loaded into the pipeline by media kind",
		}, []string{"kind"}),
		teardowns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "teardowns_total",
			Help:      "Pipeline teardowns that released at least one resource",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rejections_total",
			Help:      "Sources rejected before reaching the pipeline",
		}, []string{"reason"}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frequency snapshots published by the sampling loop",
		}),
		notices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notices_total",
			Help:      "User notices by error category",
		}, []string{"category"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Outgoing HTTP requests by host and outcome",
		}, []string{"host", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Outgoing HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"}),
	}

	for _, c := range []prometheus.Collector{m.live, m.loads, m.teardowns, m.rejections, m.frames, m.notices, m.requests, m.latency} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) SetLive(resource string, n int) { m.live.WithLabelValues(resource).Set(float64(n)) }
func (m *Metrics) ObserveLoad(kind string)        { m.loads.WithLabelValues(kind).Inc() }
func (m *Metrics) ObserveTeardown()               { m.teardowns.Inc() }
func (m *Metrics) ObserveRejection(reason string) { m.rejections.WithLabelValues(reason).Inc() }
func (m *Metrics) ObserveFrame()                  { m.frames.Inc() }
func (m *Metrics) ObserveNotice(category string)  { m.notices.WithLabelValues(category).Inc() }

// ObserveHTTP records an outgoing request with its status (0 when none).
func (m *Metrics) ObserveHTTP(host string, status int, err error, took time.Duration) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case status >= 400:
		outcome = "http_error"
	}
	m.requests.WithLabelValues(host, outcome).Inc()
	m.latency.WithLabelValues(host).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, logger *slog.Logger, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

var _ ports.PipelineMetrics = (*Metrics)(nil)
