package session

import (
	"sync"

	"github.com/google/uuid"
)

// Manager holds the active-session pointers (opaque token -> phone identity)
// and the per-identity in-flight latch. Sessions are deliberately not
// persisted: dropping a token on restart only forces a re-login, never loses
// ledger data.
type Manager struct {
	mu       sync.RWMutex
	tokens   map[string]string
	inFlight map[string]bool
}

func NewManager() *Manager {
	return &Manager{
		tokens:   make(map[string]string),
		inFlight: make(map[string]bool),
	}
}

// Start mints a fresh session token for an identity.
func (m *Manager) Start(identity string) string {
	token := uuid.NewString()
	m.mu.Lock()
	m.tokens[token] = identity
	m.mu.Unlock()
	return token
}

// Resolve maps a token back to its identity.
func (m *Manager) Resolve(token string) (string, bool) {
	m.mu.RLock()
	identity, ok := m.tokens[token]
	m.mu.RUnlock()
	return identity, ok
}

// End drops the session pointer. The identity's account data is untouched.
func (m *Manager) End(token string) {
	m.mu.Lock()
	delete(m.tokens, token)
	m.mu.Unlock()
}

// BeginFlight claims the single-flight slot for an identity. It returns false
// when a generation is already outstanding, in which case the caller must not
// start another one.
func (m *Manager) BeginFlight(identity string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight[identity] {
		return false
	}
	m.inFlight[identity] = true
	return true
}

// EndFlight releases the slot after the outstanding call settles, whether it
// succeeded or failed.
func (m *Manager) EndFlight(identity string) {
	m.mu.Lock()
	delete(m.inFlight, identity)
	m.mu.Unlock()
}
