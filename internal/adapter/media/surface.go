package media

import (
	"fmt"
	"sync"

	"github.com/tejashwikalptaru/truestream/internal/domain"
)

// Surface is the off-screen container video elements are attached to.
// It has no size and takes no part in layout; it only records which
// elements are attached so teardown can be verified.
type Surface struct {
	mu       sync.Mutex
	attached map[domain.ElementID]struct{}
	attaches int
	detaches int
}

// NewSurface creates an empty surface.
func NewSurface() *Surface {
	return &Surface{attached: make(map[domain.ElementID]struct{})}
}

// Attach adds an element. Attaching an element twice is an error.
func (s *Surface) Attach(id domain.ElementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attached[id]; ok {
		return fmt.Errorf("element %d already attached", id)
	}
	s.attached[id] = struct{}{}
	s.attaches++
	return nil
}

// Detach removes an element. Detaching an element that is not attached is a no-op.
func (s *Surface) Detach(id domain.ElementID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attached[id]; !ok {
		return
	}
	delete(s.attached, id)
	s.detaches++
}

// Contains reports whether id is attached.
func (s *Surface) Contains(id domain.ElementID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.attached[id]
	return ok
}

// Len returns the number of attached elements.
func (s *Surface) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attached)
}

// Stats returns the lifetime attach and detach counts.
func (s *Surface) Stats() (attaches, detaches int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attaches, s.detaches
}
