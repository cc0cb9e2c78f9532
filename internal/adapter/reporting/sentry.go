// Package reporting forwards unexpected errors to Sentry.
package reporting

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// Config configures Sentry reporting. An empty DSN disables it.
type Config struct {
	DSN         string
	Environment string
	Release     string

	// Transport replaces the HTTP transport, for tests.
	Transport sentry.Transport
}

// Reporter sends pipeline errors to its own Sentry hub. Validation errors
// are the user's input and are never reported.
type Reporter struct {
	logger *slog.Logger
	hub    *sentry.Hub
}

// NewReporter creates a reporter. With an empty DSN and no transport the
// reporter is a no-op.
func NewReporter(logger *slog.Logger, cfg Config) (*Reporter, error) {
	r := &Reporter{logger: logger.With(slog.String("service", "ErrorReporter"))}
	if cfg.DSN == "" && cfg.Transport == nil {
		return r, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		Transport:        cfg.Transport,
		AttachStacktrace: true,
		SampleRate:       1.0,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			// no user, host or request data leaves the machine
			event.User = sentry.User{}
			event.ServerName = ""
			event.Request = nil
			return event
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry client: %w", err)
	}

	scope := sentry.NewScope()
	scope.SetTag("os", runtime.GOOS)
	scope.SetTag("arch", runtime.GOARCH)
	r.hub = sentry.NewHub(client, scope)
	r.logger.Info("error reporting enabled", slog.String("environment", cfg.Environment))
	return r, nil
}

// Enabled reports whether errors are sent anywhere.
func (r *Reporter) Enabled() bool {
	return r.hub != nil
}

// Report sends err with tags. Nil and validation errors are ignored.
func (r *Reporter) Report(err error, tags map[string]string) {
	if err == nil || r.hub == nil {
		return
	}
	category := domain.CategoryOf(err)
	if category == domain.CategoryValidation {
		return
	}

	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		scope.SetTag("category", category.String())
		r.hub.CaptureException(err)
	})
	r.logger.Debug("error reported", slog.String("category", category.String()), slog.Any("error", err))
}

// Flush waits up to timeout for queued events to be sent.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if r.hub == nil {
		return true
	}
	return r.hub.Flush(timeout)
}

var _ ports.ErrorReporter = (*Reporter)(nil)
