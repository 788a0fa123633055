package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/starnotary/core"
)

// MemoryStore is an in-memory implementation of the session and grant stores.
// Sessions are never swept; expiry is checked by the registry on access.
type MemoryStore struct {
	sessions map[string]core.Session
	grants   map[string]time.Time
	mu       sync.RWMutex
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]core.Session),
		grants:   make(map[string]time.Time),
		now:      time.Now,
	}
}

// Load returns a copy of the address's session
func (s *MemoryStore) Load(ctx context.Context, address string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[address]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return &session, nil
}

// Save stores a copy of the session; ttl is ignored
func (s *MemoryStore) Save(ctx context.Context, session *core.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.Address] = *session
	return nil
}

// Delete removes the address's session
func (s *MemoryStore) Delete(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, address)
	return nil
}

// ConsumeGrant marks a grant as used until ttl elapses
func (s *MemoryStore) ConsumeGrant(ctx context.Context, grantID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if until, ok := s.grants[grantID]; ok && now.Before(until) {
		return false, nil
	}
	s.grants[grantID] = now.Add(ttl)

	// Drop records that have outlived their grants
	for id, until := range s.grants {
		if !now.Before(until) {
			delete(s.grants, id)
		}
	}
	return true, nil
}
