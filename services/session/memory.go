package session

import (
	"context"
	"sync"
	"time"

	"furk/models"
)

// MemoryStore keeps sessions in process memory. Used in tests and single
// instance development setups.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	notices  map[string]string
	hub      *hub
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]models.Session),
		notices:  make(map[string]string),
		hub:      newHub(),
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *models.Session) error {
	rec := *s
	rec.UpdatedAt = time.Now()
	m.mu.Lock()
	m.sessions[rec.ID] = rec
	m.mu.Unlock()
	m.hub.publish(Event{Kind: EventSaved, SessionID: rec.ID, Role: rec.Role})
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	m.hub.publish(Event{Kind: EventCleared, SessionID: id})
	return nil
}

func (m *MemoryStore) SetNotice(_ context.Context, id, notice string) error {
	m.mu.Lock()
	m.notices[id] = notice
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PopNotice(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.notices[id]
	delete(m.notices, id)
	return n, nil
}

func (m *MemoryStore) Subscribe(buf int) (<-chan Event, func()) {
	return m.hub.subscribe(buf)
}

// Len reports the number of live records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
