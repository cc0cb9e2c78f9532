package mock

import (
	"fmt"
	"sync"

	"github.com/tejashwikalptaru/truestream/internal/domain"
	"github.com/tejashwikalptaru/truestream/internal/ports"
)

// Journal records resource operations across mocks in call order, so tests
// can assert teardown ordering.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends an entry. A nil journal ignores it.
func (j *Journal) Record(format string, args ...any) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the entries.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// Reset clears the journal.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
}

// URLStore wraps an ObjectURLStore and journals acquire and release.
type URLStore struct {
	ports.ObjectURLStore
	journal *Journal
}

// NewURLStore wraps store.
func NewURLStore(store ports.ObjectURLStore, journal *Journal) *URLStore {
	return &URLStore{ObjectURLStore: store, journal: journal}
}

// Acquire journals "url.acquire".
func (s *URLStore) Acquire(src domain.MediaSource) (domain.ObjectURL, error) {
	url, err := s.ObjectURLStore.Acquire(src)
	if err == nil {
		s.journal.Record("url.acquire")
	}
	return url, err
}

// Release journals "url.release" for valid handles.
func (s *URLStore) Release(url domain.ObjectURL) {
	if url.IsValid() {
		s.journal.Record("url.release")
	}
	s.ObjectURLStore.Release(url)
}
