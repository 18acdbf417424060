package subscription

import (
	"context"
	"sync"

	"github.com/docspace/backend/internal/domain/document"
	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/docspace/backend/internal/domain/quota"
	"github.com/docspace/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ProviderFactory creates a billing provider bound to one user
type ProviderFactory func(userID string) (entitlement.Provider, error)

// ManagerConfig contains the manager's collaborators
type ManagerConfig struct {
	Factory  ProviderFactory
	Resolver *entitlement.Resolver
	Guard    *quota.Guard
	Counter  document.Counter
	Events   shared.EventPublisher
	Logger   *zap.Logger
}

// Manager owns one session per user. Sessions are created lazily on the
// first request that needs one and are bound before being handed out.
type Manager struct {
	cfg ManagerConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Guard == nil {
		cfg.Guard = quota.NewGuard()
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// SessionFor returns the bound session for a user, creating and binding one
// if needed. A session whose bind previously failed is retried here; a bind
// failure is returned to the caller and the session stays unresolved.
func (m *Manager) SessionFor(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, entitlement.ErrInvalidUser
	}

	session, err := m.obtain(userID)
	if err != nil {
		return nil, err
	}

	switch session.Status() {
	case StatusUninitialized, StatusBinding:
		if err := session.Bind(ctx, userID); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// obtain returns the live session for a user, replacing a torn down one
func (m *Manager) obtain(userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[userID]; ok && session.Status() != StatusTornDown {
		return session, nil
	}

	provider, err := m.cfg.Factory(userID)
	if err != nil {
		return nil, err
	}
	session := NewSession(Config{
		Provider: provider,
		Resolver: m.cfg.Resolver,
		Guard:    m.cfg.Guard,
		Counter:  m.cfg.Counter,
		Events:   m.cfg.Events,
		Logger:   m.cfg.Logger,
	})
	m.sessions[userID] = session
	return session, nil
}

// Peek returns the user's session without creating or binding one
func (m *Manager) Peek(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	return session, ok
}

// Teardown tears down and forgets the user's session, if any
func (m *Manager) Teardown(userID string) {
	m.mu.Lock()
	session := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if session != nil {
		session.Teardown()
	}
}

// TeardownAll tears down every session, used on shutdown
func (m *Manager) TeardownAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Teardown()
	}
}
