package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sallahudin001/proposal-engine/internal/obs"
	"github.com/Sallahudin001/proposal-engine/internal/offers"
)

// ErrProposalNotFound indicates the proposal id has no base pricing record.
var ErrProposalNotFound = errors.New("session: proposal not found")

// ProposalSource loads a proposal's base pricing record and service list.
type ProposalSource interface {
	ProposalPricing(ctx context.Context, proposalID string) (BasePricing, []string, error)
}

// AddonSource loads the per-service addon catalog for a proposal.
type AddonSource interface {
	ProposalAddons(ctx context.Context, proposalID string, services []string) (map[string][]Addon, error)
}

// ExpiryScheduler schedules a deactivation job for an offer at its deadline.
// Scheduling is best-effort; the countdown excludes expired offers regardless.
type ExpiryScheduler interface {
	ScheduleDeactivation(ctx context.Context, offerID string, at time.Time) error
}

// Manager is the registry of open pricing sessions, one per proposal. Sessions
// open lazily and stop their countdown ticker when closed, idle-evicted past
// IdleTTL, or swept up by Shutdown.
type Manager struct {
	Proposals    ProposalSource
	Addons       AddonSource
	Catalog      *offers.Loader
	Persister    AddonPersister
	Expiry       ExpiryScheduler
	Logger       zerolog.Logger
	TickInterval time.Duration
	IdleTTL      time.Duration
	Now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	lastSeen map[string]time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Manager) touchLocked(proposalID string) {
	if m.lastSeen == nil {
		m.lastSeen = make(map[string]time.Time)
	}
	m.lastSeen[proposalID] = m.now()
}

// Open returns the live session for a proposal, creating one on first use.
func (m *Manager) Open(ctx context.Context, proposalID string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[proposalID]; ok {
		m.touchLocked(proposalID)
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	base, services, err := m.Proposals.ProposalPricing(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	var addons map[string][]Addon
	if m.Addons != nil {
		addons, err = m.Addons.ProposalAddons(ctx, proposalID, services)
		if err != nil {
			// An empty addon catalog is preferable to a dead proposal view.
			m.Logger.Warn().Err(err).Str("proposal_id", proposalID).Msg("load addon catalog")
			addons = nil
		}
	}
	catalog := m.Catalog.Load(ctx, proposalID, services)

	s := New(Config{
		ProposalID:   proposalID,
		Services:     services,
		Base:         base,
		Catalog:      catalog,
		Addons:       addons,
		Persister:    m.Persister,
		Logger:       m.Logger,
		Now:          m.Now,
		TickInterval: m.TickInterval,
	})

	m.mu.Lock()
	if existing, ok := m.sessions[proposalID]; ok {
		// Lost the race to another opener; discard ours.
		m.touchLocked(proposalID)
		m.mu.Unlock()
		s.Close()
		return existing, nil
	}
	if m.sessions == nil {
		m.sessions = make(map[string]*Session)
	}
	m.sessions[proposalID] = s
	m.touchLocked(proposalID)
	m.mu.Unlock()
	obs.ActiveSessions.Inc()

	m.scheduleExpiries(ctx, catalog.Special)
	return s, nil
}

// Get returns an already open session, if any. A hit refreshes the session's
// idle clock.
func (m *Manager) Get(proposalID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[proposalID]
	if ok {
		m.touchLocked(proposalID)
	}
	return s, ok
}

// Close tears down the session for a proposal, stopping its countdown.
func (m *Manager) Close(proposalID string) {
	m.mu.Lock()
	s, ok := m.sessions[proposalID]
	if ok {
		delete(m.sessions, proposalID)
		delete(m.lastSeen, proposalID)
	}
	m.mu.Unlock()
	if ok {
		s.Close()
		obs.ActiveSessions.Dec()
	}
}

// EvictIdle closes every session that has not been touched within the idle
// TTL and returns how many were evicted. A zero TTL disables eviction.
func (m *Manager) EvictIdle() int {
	if m.IdleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.IdleTTL)
	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if seen, ok := m.lastSeen[id]; ok && seen.After(cutoff) {
			continue
		}
		stale = append(stale, s)
		delete(m.sessions, id)
		delete(m.lastSeen, id)
	}
	m.mu.Unlock()
	for _, s := range stale {
		s.Close()
		obs.ActiveSessions.Dec()
	}
	return len(stale)
}

// RunEviction sweeps for idle sessions on the given interval until the
// context is cancelled. Callers run it on its own goroutine.
func (m *Manager) RunEviction(ctx context.Context, every time.Duration) {
	if m.IdleTTL <= 0 || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.EvictIdle(); n > 0 {
				m.Logger.Info().Int("evicted", n).Msg("closed idle sessions")
			}
		}
	}
}

// Shutdown closes every open session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = nil
	m.lastSeen = nil
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
		obs.ActiveSessions.Dec()
	}
}

func (m *Manager) scheduleExpiries(ctx context.Context, special []offers.SpecialOffer) {
	if m.Expiry == nil {
		return
	}
	for _, offer := range special {
		if offer.ExpiresAt == nil || !offer.ExpiresAt.After(m.now()) {
			continue
		}
		if err := m.Expiry.ScheduleDeactivation(ctx, offer.ID, *offer.ExpiresAt); err != nil {
			m.Logger.Warn().Err(err).Str("offer_id", offer.ID).Msg("schedule offer deactivation")
		}
	}
}
