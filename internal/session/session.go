// Package session holds ephemeral per-account conversational state. It lives
// in process memory, never in the durable store: its lifecycle is tied to the
// session, not the account row.
package session

import (
	"sync"
)

type State int

const (
	StateNone State = iota
	// StateAwaitingWithdrawAmount means the next free-text message from the
	// account is a withdrawal amount.
	StateAwaitingWithdrawAmount
	// StateAwaitingBroadcast means the next free-text message from the admin
	// is a broadcast text.
	StateAwaitingBroadcast
	// StateAwaitingSupport means the next free-text message is a support
	// request to forward to the admins.
	StateAwaitingSupport
	// StateAwaitingSupportReply means the next free-text message from the
	// admin is relayed to TargetID.
	StateAwaitingSupportReply
)

type Session struct {
	State    State
	TargetID int64
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]Session)}
}

func (m *Manager) Set(accountID int64, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[accountID] = s
}

func (m *Manager) Get(accountID int64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[accountID]
	return s, ok
}

// Clear drops any pending step so stale free text cannot be misread as input
// later. Safe to call when no session exists.
func (m *Manager) Clear(accountID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, accountID)
}
