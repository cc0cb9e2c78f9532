package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCollaboratorTimeout bounds a single detached collaborator call.
const DefaultCollaboratorTimeout = 30 * time.Second

// detachedTasks runs fire-and-forget collaborator calls. Results are
// logged and otherwise discarded; nothing waits on a task except Close.
type detachedTasks struct {
	logger  *slog.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	started int
	failed  int
}

func newDetachedTasks(logger *slog.Logger, timeout time.Duration) *detachedTasks {
	if timeout <= 0 {
		timeout = DefaultCollaboratorTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &detachedTasks{
		logger:  logger,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Go starts fn in its own goroutine with a bounded context.
// It returns false once the group is closed.
func (d *detachedTasks) Go(name string, fn func(ctx context.Context) error) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Debug("detached task dropped after close", slog.String("task", name))
		return false
	}
	d.started++
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			d.mu.Lock()
			d.failed++
			d.mu.Unlock()
			d.logger.Warn("detached task failed",
				slog.String("task", name),
				slog.Duration("took", time.Since(start)),
				slog.Any("error", err))
			return
		}
		d.logger.Debug("detached task finished",
			slog.String("task", name),
			slog.Duration("took", time.Since(start)))
	}()
	return true
}

// Stats returns how many tasks were started and how many failed.
func (d *detachedTasks) Stats() (started, failed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started, d.failed
}

// Close stops accepting tasks and waits up to timeout for running ones to
// return. Tasks still running after that are canceled. It reports whether
// all tasks finished in time.
func (d *detachedTasks) Close(timeout time.Duration) bool {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	defer d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		d.logger.Warn("detached tasks still running after close", slog.Duration("timeout", timeout))
		return false
	}
}
