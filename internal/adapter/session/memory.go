// Package session provides server-side session stores.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/port"
	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory. Contents do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
	}
}

// Create stores a new session for the given user.
func (s *MemoryStore) Create(_ context.Context, userID int64, email string, ttl time.Duration) (*domain.Session, error) {
	now := s.now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserEmail: email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	snapshot := *sess
	return &snapshot, nil
}

// Get returns a copy of the session. Expired entries are treated as absent.
func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	if !ok || sess.Expired(s.now()) {
		s.mu.RUnlock()
		return nil, port.ErrSessionNotFound
	}
	snapshot := *sess
	s.mu.RUnlock()
	return &snapshot, nil
}

// Touch moves the expiry of a live session to now+ttl.
func (s *MemoryStore) Touch(_ context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sess, ok := s.sessions[id]
	if !ok || sess.Expired(now) {
		return port.ErrSessionNotFound
	}
	sess.ExpiresAt = now.Add(ttl)
	return nil
}

// Destroy removes a session. Unknown ids are ignored.
func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	evicted := 0
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Info("expired sessions evicted", "count", n, "remaining", s.Len())
			}
		}
	}
}
