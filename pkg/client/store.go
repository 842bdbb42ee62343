package client

import "sync"

// Store holds the current session for the lifetime of the page. It is a pure
// state holder: no I/O, mutated only by the orchestrator. Subscribers are
// notified on every change so dependent channel bindings can react.
type Store struct {
	mu      sync.RWMutex
	current Session
	valid   bool
	subs    []func(Session, bool)
}

func NewStore() *Store {
	return &Store{}
}

// Current returns the current session, or ok=false when none is set.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.valid
}

// CurrentID returns the current session id, or "" when none is set.
func (s *Store) CurrentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.valid {
		return ""
	}
	return s.current.ID
}

func (s *Store) Set(session Session) {
	s.mu.Lock()
	s.current = session
	s.valid = true
	subs := append(([]func(Session, bool))(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub(session, true)
	}
}

// CompareAndSet replaces the current session only while expectedID is still
// the current session id. It closes the window between reading state and
// folding a response back in, so a fetch or event that raced with a reset
// cannot overwrite the replacement session.
func (s *Store) CompareAndSet(expectedID string, session Session) bool {
	s.mu.Lock()
	if !s.valid || s.current.ID != expectedID {
		s.mu.Unlock()
		return false
	}
	s.current = session
	subs := append(([]func(Session, bool))(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub(session, true)
	}
	return true
}

func (s *Store) Invalidate() {
	s.mu.Lock()
	s.current = Session{}
	s.valid = false
	subs := append(([]func(Session, bool))(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub(Session{}, false)
	}
}

// OnChange registers fn to run after every Set or Invalidate.
func (s *Store) OnChange(fn func(session Session, ok bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}
