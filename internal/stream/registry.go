package stream

import "sync"

// Registry points at the one session the control endpoints act on. Only a
// single active session is supported: attaching a new connection's session
// replaces the previous one, which keeps streaming but can no longer be
// registered or stopped.
type Registry struct {
	mu      sync.RWMutex
	current *Session
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Attach makes s current and returns the session it replaced, if any.
func (r *Registry) Attach(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.current
	r.current = s
	return prev
}

// Detach clears the registry if s is still current.
func (r *Registry) Detach(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != s {
		return false
	}
	r.current = nil
	return true
}

func (r *Registry) Current() (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.current, r.current != nil
}
