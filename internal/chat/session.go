package chat

import (
	"sync"

	"github.com/dkrylov/shoply/internal/domain"
)

// PendingOrder is a proposed, unconfirmed set of order lines held per
// chat session. At most one exists per session; a new proposal
// overwrites it, and it is absent after confirm or cancel.
type PendingOrder struct {
	Lines []domain.OrderLine
}

// Session holds the conversational state for one user. Every turn for
// a session runs under its lock, so a confirmation cannot race the
// commit of a previous one.
type Session struct {
	UserID int64

	mu      sync.Mutex
	pending *PendingOrder
}

// Lock enters the session's turn critical section.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock leaves the session's turn critical section.
func (s *Session) Unlock() { s.mu.Unlock() }

// HasPending reports whether an order proposal awaits confirmation.
func (s *Session) HasPending() bool {
	return s.pending != nil
}

// Pending returns the current proposal, or nil.
func (s *Session) Pending() *PendingOrder {
	return s.pending
}

// SetPending stores a proposal, overwriting any existing one.
func (s *Session) SetPending(lines []domain.OrderLine) {
	copied := make([]domain.OrderLine, len(lines))
	copy(copied, lines)
	s.pending = &PendingOrder{Lines: copied}
}

// ClearPending removes the proposal and returns it, or nil if absent.
func (s *Session) ClearPending() *PendingOrder {
	p := s.pending
	s.pending = nil
	return p
}

// Manager tracks live chat sessions by user.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]*Session)}
}

// Get returns the user's session, creating it on first use.
func (m *Manager) Get(userID int64) *Session {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s = &Session{UserID: userID}
	m.sessions[userID] = s
	return s
}

// End destroys the user's session and any pending proposal with it.
func (m *Manager) End(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
