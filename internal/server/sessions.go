package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-sections/pkg/editor"
)

// sessions keeps the editor sessions opened over HTTP. A session unused for
// longer than ttl is dropped; a zero ttl keeps sessions until deleted.
type sessions struct {
	mu    sync.Mutex
	items map[string]*sessionEntry
	ttl   time.Duration
	now   func() time.Time
}

type sessionEntry struct {
	session  *editor.Session
	lastSeen time.Time
}

func newSessions(ttl time.Duration) *sessions {
	return &sessions{
		items: make(map[string]*sessionEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *sessions) create() *editor.Session {
	session := editor.NewSession(uuid.NewString())
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	s.items[session.ID] = &sessionEntry{session: session, lastSeen: now}
	return session
}

// get returns a live session and marks it used.
func (s *sessions) get(id string) (*editor.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(entry, now) {
		delete(s.items, id)
		return nil, false
	}
	entry.lastSeen = now
	return entry.session, true
}

func (s *sessions) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// sweep drops every idle session and returns how many were dropped.
func (s *sessions) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *sessions) sweepLocked(now time.Time) int {
	dropped := 0
	for id, entry := range s.items {
		if s.expired(entry, now) {
			delete(s.items, id)
			dropped++
		}
	}
	return dropped
}

func (s *sessions) expired(entry *sessionEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.lastSeen) > s.ttl
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
