package session

import (
	"context"
	"sync"
	"time"

	"example.com/ecoguard/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is a concurrent map of token to session. Sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an empty store. A zero ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock replaces the time source, for tests
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Create(ctx context.Context, username string, role models.Role) (*Session, error) {
	s := newSession(username, role, m.now(), m.ttl)

	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()

	out := *s
	return &out, nil
}

func (m *MemoryStore) Get(ctx context.Context, token string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()

	if !ok || s.Expired(m.now()) {
		return nil, ErrNotFound
	}
	out := *s
	return &out, nil
}

func (m *MemoryStore) Invalidate(ctx context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Sweep(ctx context.Context) (int, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close drops every session
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	return nil
}

func newSession(username string, role models.Role, now time.Time, ttl time.Duration) *Session {
	s := &Session{
		Token:    uuid.NewString(),
		Username: username,
		Role:     role,
		IssuedAt: now,
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		s.ExpiresAt = &exp
	}
	return s
}
