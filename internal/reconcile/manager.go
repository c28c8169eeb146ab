package reconcile

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager owns one Session per viewed network.
type Manager struct {
	mappings     MappingSource
	balances     BalanceSource
	fetchTimeout time.Duration
	logger       *zap.Logger

	mu       sync.Mutex
	sessions map[uint32]*Session
}

func NewManager(mappings MappingSource, balances BalanceSource, fetchTimeout time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		mappings:     mappings,
		balances:     balances,
		fetchTimeout: fetchTimeout,
		logger:       logger,
		sessions:     make(map[uint32]*Session),
	}
}

// Session returns the session of network, creating and loading it on first
// use. A failed first load still returns the session so the caller can render
// its error view and refetch.
func (m *Manager) Session(ctx context.Context, network uint32) (*Session, error) {
	m.mu.Lock()
	session, ok := m.sessions[network]
	if ok {
		m.mu.Unlock()
		return session, nil
	}
	session = NewSession(SessionConfig{Network: network, FetchTimeout: m.fetchTimeout}, m.mappings, m.balances, m.logger)
	// Concurrent callers find the session already loading.
	generation, done, err := session.begin()
	if err != nil {
		m.mu.Unlock()
		return session, err
	}
	m.sessions[network] = session
	m.mu.Unlock()

	return session, session.load(ctx, generation, done)
}

// Refetch reloads the session of network. A network without a session is
// loaded for the first time instead.
func (m *Manager) Refetch(ctx context.Context, network uint32) (*Session, error) {
	m.mu.Lock()
	session, ok := m.sessions[network]
	m.mu.Unlock()
	if !ok {
		return m.Session(ctx, network)
	}
	return session, session.Refetch(ctx)
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for network, session := range m.sessions {
		session.Close()
		delete(m.sessions, network)
	}
}
