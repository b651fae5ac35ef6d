// Package session holds the server-side registry of live admin sessions.
// A session token is only honoured while its id is present here, which is
// what makes logout final.
package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps session ids in process memory. Sessions do not survive
// a restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expires, ok := s.sessions[sessionID]
	if !ok {
		return false, nil
	}
	if !s.now().Before(expires) {
		delete(s.sessions, sessionID)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
