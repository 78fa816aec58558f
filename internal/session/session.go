// Package session holds per-operator ephemeral conversation context: the
// selected project and the survey question awaiting an answer. Nothing here
// survives a restart; durable answers live in the survey store.
package session

import (
	"sync"

	"github.com/projectpulse/pulsebot/internal/survey"
)

// Context is one operator's navigation state. The zero value is a fresh
// session.
type Context struct {
	ProjectKey      string
	PendingQuestion survey.QuestionID
}

// Manager owns all sessions, created lazily on first interaction. Updates
// for one identity are serialized through the manager lock; sessions are
// never torn down (the operator set is small and fixed).
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Context
	onCreate func()
}

// NewManager creates an empty session manager. onCreate, if non-nil, is
// invoked once per lazily created session (used for the session gauge).
func NewManager(onCreate func()) *Manager {
	return &Manager{sessions: make(map[int64]*Context), onCreate: onCreate}
}

func (m *Manager) session(id int64) *Context {
	sc, ok := m.sessions[id]
	if !ok {
		sc = &Context{}
		m.sessions[id] = sc
		if m.onCreate != nil {
			m.onCreate()
		}
	}
	return sc
}

// Get returns a snapshot of the identity's session.
func (m *Manager) Get(id int64) Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.session(id)
}

// Update applies fn to the identity's session under the manager lock, so two
// concurrent events for the same identity cannot race on the slots.
func (m *Manager) Update(id int64, fn func(*Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.session(id))
}
