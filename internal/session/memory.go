package session

import (
	"context"
	"sync"

	"github.com/jwalitptl/leukemia-dashboard/internal/model"
)

// MemoryStore keeps the session in process memory. It is what tests inject.
type MemoryStore struct {
	mu      sync.RWMutex
	session Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Token(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Token, nil
}

func (m *MemoryStore) Load(_ context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.session
	if out.User != nil {
		u := *out.User
		out.User = &u
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, token string, user *model.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{Token: token}
	if user != nil {
		u := *user
		m.session.User = &u
	}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{}
	return nil
}
