// Package session tracks which identities currently have a live storefront
// session and gates the load/teardown of their mirrored state.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/xenking/gleam-storefront/internal/domain/identity"
	"github.com/xenking/gleam-storefront/internal/shop"
	"github.com/xenking/gleam-storefront/internal/store"
)

// Manager owns one shop.Service per signed-in identity.
//
// Attach is idempotent per identity: repeated attaches of the same identity
// return the existing service without reloading. Detach clears the session's
// collections synchronously, so no partial state is observable across a
// sign-out boundary and a later identity never sees a prior identity's rows.
type Manager struct {
	lg    *zap.Logger
	store store.Store
	feed  store.Feed
	users identity.Repository

	mu       sync.Mutex
	sessions map[string]*shop.Service
}

// NewManager creates a Manager producing sessions over the given store and
// feed. users may be nil when no shadow user table is maintained.
func NewManager(lg *zap.Logger, st store.Store, feed store.Feed, users identity.Repository) *Manager {
	return &Manager{
		lg:       lg,
		store:    st,
		feed:     feed,
		users:    users,
		sessions: make(map[string]*shop.Service),
	}
}

// Attach returns the live session for the identity, creating and starting
// one on the first call. The identity is mirrored into the user shadow table
// on first sight.
func (m *Manager) Attach(ctx context.Context, id identity.Identity) (*shop.Service, error) {
	if id.ID == "" {
		return nil, shop.ErrNotAuthenticated
	}

	m.mu.Lock()
	if svc, ok := m.sessions[id.ID]; ok {
		m.mu.Unlock()
		return svc, nil
	}
	m.mu.Unlock()

	if m.users != nil {
		if err := m.users.Upsert(ctx, &id); err != nil {
			// Shadow-table sync is best effort; the session still works.
			m.lg.Warn("sync user", zap.String("user_id", id.ID), zap.Error(err))
		}
	}

	svc := shop.New(m.lg, m.store, m.feed, id)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id.ID]; ok {
		// Lost the race with a concurrent attach; keep the winner.
		svc.Close()
		return existing, nil
	}
	m.sessions[id.ID] = svc
	return svc, nil
}

// Get returns the live session for a user, if any.
func (m *Manager) Get(userID string) (*shop.Service, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.sessions[userID]
	return svc, ok
}

// Detach tears down the user's session: subscriptions closed, collections
// cleared. A no-op for unknown users.
func (m *Manager) Detach(userID string) {
	m.mu.Lock()
	svc, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		svc.Close()
	}
}

// Shutdown closes every live session. Called on server shutdown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*shop.Service)
	m.mu.Unlock()

	for _, svc := range sessions {
		svc.Close()
	}
}
