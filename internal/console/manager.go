package console

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"orgs-sync/internal/browser"
	"orgs-sync/internal/gateway"
	"orgs-sync/internal/metadata"
)

// SessionManager owns the live browser sessions of a console server.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	provider metadata.Provider
	gw       gateway.Gateway
	opts     browser.Options
	now      func() time.Time
}

func NewSessionManager(provider metadata.Provider, gw gateway.Gateway, opts browser.Options) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		provider: provider,
		gw:       gw,
		opts:     opts,
		now:      time.Now,
	}
}

// Create starts a session and initializes its controller. A failed
// initialization still yields a (degraded) session whose notifications
// explain the failure.
func (m *SessionManager) Create(ctx context.Context) *Session {
	s := &Session{
		ID:            uuid.NewString(),
		Notifications: &browser.Recorder{},
	}
	s.Controller = browser.NewController(m.provider, m.gw,
		browser.NewLogNotifier(s.ID[:8], s.Notifications), m.opts)
	s.touch(m.now())

	s.ops.Lock()
	defer s.ops.Unlock()

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if err := s.Controller.Initialize(ctx); err != nil {
		log.Printf("WARN: session %s started degraded: %v", s.ID, err)
	}
	return s
}

// Get returns the session with the given id and marks it used, or nil.
func (m *SessionManager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	s.touch(m.now())
	return s
}

// Delete drops a session. Returns false if it did not exist.
func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Expire drops every session idle for longer than ttl and returns how many
// were removed.
func (m *SessionManager) Expire(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.LastAccess().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Close drops all sessions.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*Session)
}
