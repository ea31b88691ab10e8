package services

import (
	"sync"
	"time"
)

// Session is the identity state of the running app. It starts when the
// AppContext is built and is torn down when the user clears their data.
type Session struct {
	mu         sync.RWMutex
	identity   string
	recovered  bool
	startedAt  time.Time
	generation uint64
	onTeardown []func(identity string)
}

func NewSession() *Session {
	return &Session{startedAt: time.Now().UTC(), generation: 1}
}

// Bind records the identity the session runs under.
func (s *Session) Bind(identity string, recovered bool) {
	s.mu.Lock()
	s.identity = identity
	s.recovered = recovered
	s.mu.Unlock()
}

// BindAt binds identity only while the session is still at generation gen,
// so a resolution that raced a teardown is not bound to the new session.
func (s *Session) BindAt(gen uint64, identity string, recovered bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	s.identity = identity
	s.recovered = recovered
	return true
}

// Identity returns the bound identity, or "" before resolution.
func (s *Session) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Recovered reports whether the bound identity came from a device mapping.
func (s *Session) Recovered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recovered
}

// StartedAt returns when the current session began.
func (s *Session) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// Generation increases on every teardown.
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// OnTeardown registers fn to run when the session is torn down. fn gets the
// identity that was bound at that moment.
func (s *Session) OnTeardown(fn func(identity string)) {
	s.mu.Lock()
	s.onTeardown = append(s.onTeardown, fn)
	s.mu.Unlock()
}

// Teardown unbinds the identity, runs the teardown hooks and starts a new
// empty session.
func (s *Session) Teardown() {
	s.mu.Lock()
	identity := s.identity
	hooks := append([]func(string){}, s.onTeardown...)
	s.identity = ""
	s.recovered = false
	s.startedAt = time.Now().UTC()
	s.generation++
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(identity)
	}
}
