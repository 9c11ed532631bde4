package backup

import (
	"sync"

	"github.com/thoreinstein/mcpm/internal/errors"
)

// Session takes at most one successful snapshot per source for its lifetime,
// so a run that writes the same file several times keeps only the original.
type Session struct {
	mgr *Manager

	mu   sync.Mutex
	done map[string]bool
}

// NewSession wraps mgr.
func NewSession(mgr *Manager) *Session {
	return &Session{mgr: mgr, done: make(map[string]bool)}
}

// Manager returns the wrapped manager.
func (s *Session) Manager() *Manager {
	return s.mgr
}

// EnsureBackedUp snapshots filePaths for source unless that already happened
// in this session. Missing files are not an error. A failed snapshot can be
// retried by the next call.
func (s *Session) EnsureBackedUp(source string, filePaths ...string) error {
	if s == nil || s.mgr == nil || len(filePaths) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done[source] {
		return nil
	}

	if _, err := s.mgr.Backup(source, filePaths); err != nil && !errors.Is(err, ErrNothingToBackUp) {
		return errors.Wrapf(err, "creating backup for %s", source)
	}
	s.done[source] = true
	return nil
}

// Reset forgets which sources were backed up.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = make(map[string]bool)
}
