// Package checkout coordinates sale-capture sessions: each register session
// owns a draft, persists it for resume, and funnels submission through the
// duplicate-submission guard into the finalization service.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/saletrack/pos-checkout/internal/domain/draft"
)

// Config holds checkout behaviour settings.
type Config struct {
	// TaxRate is the fraction applied to cart subtotals; zero disables tax.
	TaxRate decimal.Decimal
	// SubmitCooldown is the window after a resolved submission during which
	// another attempt is rejected.
	SubmitCooldown time.Duration
}

// Manager hands out checkout sessions, resuming cached drafts when present.
type Manager struct {
	store     draft.Store
	finalizer Finalizer
	cfg       Config

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager over the given draft cache and
// finalizer.
func NewManager(store draft.Store, finalizer Finalizer, cfg Config) *Manager {
	return &Manager{
		store:     store,
		finalizer: finalizer,
		cfg:       cfg,
		sessions:  make(map[string]*Session),
	}
}

// Session returns the live session for sessionID, creating it if needed.
// A new session resumes from the draft cache when an entry exists, so a
// reloaded register picks up the in-progress sale.
func (m *Manager) Session(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[sessionID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	// Load outside the manager lock: the cache read may hit the database.
	d, err := m.store.Load(ctx, sessionID)
	switch {
	case errors.Is(err, draft.ErrNoDraft):
		d = draft.New(m.cfg.TaxRate)
	case err != nil:
		return nil, errors.Wrap(err, "load cached draft")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		// Another request created the session concurrently; its state wins.
		return s, nil
	}
	s := &Session{
		id:        sessionID,
		store:     m.store,
		finalizer: m.finalizer,
		cooldown:  m.cfg.SubmitCooldown,
		draft:     d,
	}
	m.sessions[sessionID] = s
	return s, nil
}

// Cancel clears a session's draft and cache entry.
func (m *Manager) Cancel(ctx context.Context, sessionID string) error {
	s, err := m.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.Cancel(ctx)
}
