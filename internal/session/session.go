// Package session keeps per-conversation chat state in memory.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/musicnerd/backstage/internal/chat"
)

// maxMessages bounds how much history one session carries into the
// model; older turns are pruned.
const maxMessages = 40

type Session struct {
	ID        string         `json:"id"`
	Messages  []chat.Message `json:"messages"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Create registers a new session and returns it.
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.sessions[s.ID] = s
	return s
}

// Get returns the session, or nil when unknown or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	if m.ttl > 0 && time.Since(s.UpdatedAt) > m.ttl {
		return nil
	}
	return s
}

// Append adds one turn to the session's history, pruning old turns.
func (m *Manager) Append(id string, msg chat.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.Messages = append(s.Messages, msg)
	if len(s.Messages) > maxMessages {
		s.Messages = s.Messages[len(s.Messages)-maxMessages:]
	}
	s.UpdatedAt = time.Now()
}

// History returns a copy of the session's messages.
func (m *Manager) History(id string) []chat.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	out := make([]chat.Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// Sweep drops expired sessions. Call it periodically.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if time.Since(s.UpdatedAt) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
