// Package session keeps each user's template and uploaded records in
// memory for the length of a working session.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/youruser/cardbatch/internal/records"
	"github.com/youruser/cardbatch/internal/template"
)

var ErrNotFound = errors.New("session not found")

// Session is the state one user edits. Fields are only touched while the
// session is held through Store.With.
type Session struct {
	ID       string
	Template *template.Template
	Records  records.RecordSet
	Created  time.Time

	mu       sync.Mutex
	lastUsed time.Time
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{sessions: map[string]*Session{}, now: time.Now}
}

// Create registers a new session around tpl.
func (s *Store) Create(tpl *template.Template) *Session {
	now := s.now()
	sess := &Session{
		ID:       uuid.NewString(),
		Template: tpl,
		Created:  now,
		lastUsed: now,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// With runs fn while holding the session's lock, so operations on one
// session never interleave.
func (s *Store) With(id string, fn func(*Session) error) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	// Sweep or Delete may have dropped it while we waited for the lock.
	s.mu.RLock()
	current := s.sessions[id] == sess
	s.mu.RUnlock()
	if !current {
		return ErrNotFound
	}
	sess.lastUsed = s.now()
	return fn(sess)
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than ttl and returns how many went.
func (s *Store) Sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		// a session busy in With is in use, skip it
		if !sess.mu.TryLock() {
			continue
		}
		idle := sess.lastUsed.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
