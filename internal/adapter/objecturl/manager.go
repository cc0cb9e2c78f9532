// Package objecturl issues object URL handles for in-memory media sources.
package objecturl

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// Scheme prefixes every handle issued by a Manager.
const Scheme = "blob:truestream/"

// Manager owns the handle table. It allows one live handle at a time: the
// pipeline always releases the previous handle before acquiring a new one, so
// a second Acquire signals a leak and is refused.
type Manager struct {
	logger *slog.Logger

	mu   sync.Mutex
	live map[domain.ObjectURL]domain.MediaSource
	max  int

	// lifetime counters
	acquired uint64
	released uint64
}

// NewManager creates a Manager allowing a single outstanding handle.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger: logger,
		live:   make(map[domain.ObjectURL]domain.MediaSource),
		max:    1,
	}
}

// Acquire registers src and returns a fresh handle.
func (m *Manager) Acquire(src domain.MediaSource) (domain.ObjectURL, error) {
	if len(src.Data) == 0 {
		return domain.NoObjectURL, domain.NewValidationError("data", src.Name, "file is empty", domain.ErrEmptySource)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.live) >= m.max {
		return domain.NoObjectURL, fmt.Errorf("acquire %q: %w", src.Name, domain.ErrObjectURLOutstanding)
	}

	url := domain.ObjectURL(Scheme + uuid.NewString())
	m.live[url] = src
	m.acquired++

	m.logger.Debug("object URL acquired",
		slog.String("url", url.String()),
		slog.String("name", src.Name),
		slog.Int64("size", src.Size))

	return url, nil
}

// Release revokes url. Null, foreign and already released handles are ignored.
func (m *Manager) Release(url domain.ObjectURL) {
	if !url.IsValid() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.live[url]; !ok {
		return
	}
	delete(m.live, url)
	m.released++

	m.logger.Debug("object URL released", slog.String("url", url.String()))
}

// Resolve returns the source behind a live handle.
func (m *Manager) Resolve(url domain.ObjectURL) (domain.MediaSource, error) {
	if !strings.HasPrefix(url.String(), Scheme) {
		return domain.MediaSource{}, fmt.Errorf("resolve %q: %w", url, domain.ErrUnknownObjectURL)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.live[url]
	if !ok {
		return domain.MediaSource{}, fmt.Errorf("resolve %q: %w", url, domain.ErrUnknownObjectURL)
	}
	return src, nil
}

// Live returns the number of outstanding handles.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Stats returns how many handles were acquired and released over the
// manager's lifetime.
func (m *Manager) Stats() (acquired, released uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired, m.released
}

var _ ports.ObjectURLStore = (*Manager)(nil)
