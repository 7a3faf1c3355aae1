// Package session owns the live pricing state for a single proposal: addon and
// upsell selections, selected special offers, the countdown for time-limited
// offers, and the derived (subtotal, total, monthlyPayment) triple recomputed
// on every state change.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sallahudin001/proposal-engine/internal/countdown"
	"github.com/Sallahudin001/proposal-engine/internal/obs"
	"github.com/Sallahudin001/proposal-engine/internal/offers"
	"github.com/Sallahudin001/proposal-engine/internal/pricing"
)

// Money aliases the engine-wide monetary representation.
type Money = pricing.Money

// ErrPersistFailed wraps persistence errors surfaced by an addon toggle. The
// optimistic update has been rolled back by the time the caller sees it.
var ErrPersistFailed = errors.New("session: addon selection not persisted")

// CustomAdder is a rep-entered extra line item on the proposal's base pricing.
type CustomAdder struct {
	Description string `json:"description"`
	Cost        Money  `json:"cost"`
}

// BasePricing is the proposal's persisted pricing record, consumed read-only.
// Only the derived pricing published by the session changes during a live view;
// the base is overwritten authoritatively once persistence confirms elsewhere.
type BasePricing struct {
	Subtotal          Money         `json:"subtotal"`
	Total             Money         `json:"total"`
	MonthlyPayment    Money         `json:"monthlyPayment"`
	Discount          Money         `json:"discount"`
	FinancingTerm     int           `json:"financingTerm,omitempty"`
	InterestRate      *float64      `json:"interestRate,omitempty"`
	PaymentFactor     *float64      `json:"paymentFactor,omitempty"`
	FinancingPlanName string        `json:"financingPlanName,omitempty"`
	CustomAdders      []CustomAdder `json:"customAdders,omitempty"`
}

// Terms resolves the financing terms for recomputation. An absent payment
// factor is reconstructed from the original monthly payment and total when
// both are nonzero, per the identity factor = monthly/total*100.
func (b BasePricing) Terms() pricing.Terms {
	t := pricing.Terms{
		TermMonths:  b.FinancingTerm,
		LastMonthly: b.MonthlyPayment,
	}
	if b.InterestRate != nil {
		t.AnnualRatePct = *b.InterestRate
		t.RateKnown = true
	}
	if b.PaymentFactor != nil {
		t.FactorBps = pricing.FactorBps(*b.PaymentFactor)
	} else {
		t.FactorBps = pricing.ReconstructFactorBps(b.MonthlyPayment, b.Total)
	}
	return t
}

// Addon is an optional line item from a per-service catalog. MonthlyImpact is
// always re-derived from the price and the proposal's financing terms; catalog
// data may predate the proposal's actual terms.
type Addon struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         Money  `json:"price"`
	MonthlyImpact Money  `json:"monthlyImpact"`
	Selected      bool   `json:"selected"`
}

// Derived is the published pricing triple. It is a pure function of the
// current selections and base pricing.
type Derived struct {
	Subtotal       Money `json:"subtotal"`
	Total          Money `json:"total"`
	MonthlyPayment Money `json:"monthlyPayment"`
}

// SelectionRecord is the payload handed to the persistence collaborator when
// an addon is selected.
type SelectionRecord struct {
	ProposalID    string
	AddonID       string
	ServiceKey    string
	Price         Money
	MonthlyImpact Money
}

// AddonPersister is the opaque external call that persists addon selections.
// The engine depends on nothing beyond its success or failure.
type AddonPersister interface {
	SaveSelection(ctx context.Context, rec SelectionRecord) error
	RemoveSelection(ctx context.Context, proposalID, addonID string) error
}

// Config assembles a pricing session for one proposal.
type Config struct {
	ProposalID   string
	Services     []string
	Base         BasePricing
	Catalog      offers.Catalog
	Addons       map[string][]Addon
	Persister    AddonPersister
	Logger       zerolog.Logger
	Now          func() time.Time
	TickInterval time.Duration
}

// Session is the single owner of a proposal's mutable pricing state. All
// operations serialize on an internal mutex so every recomputation reads a
// consistent snapshot of the selection sets; the last write to the published
// pricing wins.
type Session struct {
	proposalID string
	services   []string
	base       BasePricing
	terms      pricing.Terms
	catalog    offers.Catalog
	persister  AddonPersister
	logger     zerolog.Logger
	now        func() time.Time
	ticker     *countdown.Ticker

	mu              sync.Mutex
	addons          map[string][]Addon
	selectedUpsells map[string]bool
	selectedOffers  map[string]bool
	derived         Derived
	closed          bool
}

// New builds a session, derives the initial pricing and starts the countdown
// for any time-limited offers in the catalog.
func New(cfg Config) *Session {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := &Session{
		proposalID:      cfg.ProposalID,
		services:        cfg.Services,
		base:            cfg.Base,
		terms:           cfg.Base.Terms(),
		catalog:         cfg.Catalog,
		persister:       cfg.Persister,
		logger:          cfg.Logger.With().Str("proposal_id", cfg.ProposalID).Logger(),
		now:             now,
		addons:          make(map[string][]Addon, len(cfg.Addons)),
		selectedUpsells: make(map[string]bool),
		selectedOffers:  make(map[string]bool),
	}
	for key, group := range cfg.Addons {
		copied := make([]Addon, len(group))
		copy(copied, group)
		for i := range copied {
			copied[i].MonthlyImpact = s.terms.ItemImpact(copied[i].Price)
		}
		s.addons[key] = copied
	}

	s.ticker = &countdown.Ticker{Interval: cfg.TickInterval, OnTick: s.onTick}
	s.ticker.Start(countdown.NewTimers(cfg.Catalog.Special, now()))

	s.mu.Lock()
	s.recomputeLocked()
	s.mu.Unlock()
	return s
}

// ProposalID returns the owning proposal's identifier.
func (s *Session) ProposalID() string { return s.proposalID }

// CurrentPricing returns the last published derived pricing.
func (s *Session) CurrentPricing() Derived {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.derived
}

// Catalog returns the read-only offer catalog snapshot for this proposal.
func (s *Session) Catalog() offers.Catalog { return s.catalog }

// AddonGroups returns a copy of the per-service addon state.
func (s *Session) AddonGroups() map[string][]Addon {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]Addon, len(s.addons))
	for key, group := range s.addons {
		copied := make([]Addon, len(group))
		copy(copied, group)
		out[key] = copied
	}
	return out
}

// ToggleAddon optimistically flips an addon's selection, recomputes the
// published pricing, then persists the change. On persistence failure the flag
// and pricing are restored to their pre-toggle values exactly and the error is
// returned wrapped in ErrPersistFailed. An unknown addon id is a no-op.
// Toggles serialize on the session mutex, so a second toggle always composes
// against the latest optimistic state rather than a stale snapshot.
func (s *Session) ToggleAddon(ctx context.Context, serviceKey, addonID string, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.addons[serviceKey]
	if !ok {
		return nil
	}
	idx := -1
	for i := range group {
		if group[i].ID == addonID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	prior := group[idx].Selected
	if prior == selected {
		return nil
	}

	group[idx].Selected = selected
	s.recomputeLocked()

	var err error
	if s.persister != nil {
		if selected {
			err = s.persister.SaveSelection(ctx, SelectionRecord{
				ProposalID:    s.proposalID,
				AddonID:       addonID,
				ServiceKey:    serviceKey,
				Price:         group[idx].Price,
				MonthlyImpact: group[idx].MonthlyImpact,
			})
		} else {
			err = s.persister.RemoveSelection(ctx, s.proposalID, addonID)
		}
	}
	if err != nil {
		group[idx].Selected = prior
		s.recomputeLocked()
		obs.ToggleRollbacks.Inc()
		s.logger.Warn().Err(err).Str("addon_id", addonID).Str("service", serviceKey).
			Msg("addon selection rolled back")
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	obs.SelectionToggles.WithLabelValues("addon", "ok").Inc()
	return nil
}

// ToggleUpsell flips a lifestyle upsell selection. Unknown ids are a no-op.
func (s *Session) ToggleUpsell(upsellID string, selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, up := range s.catalog.Upsells {
		if up.ID == upsellID {
			s.selectedUpsells[upsellID] = selected
			s.recomputeLocked()
			obs.SelectionToggles.WithLabelValues("upsell", "ok").Inc()
			return
		}
	}
}

// ToggleSpecialOffer flips a rep-selected special offer. An expired offer can
// still be toggled but contributes no savings. Unknown ids are a no-op.
func (s *Session) ToggleSpecialOffer(offerID string, selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, offer := range s.catalog.Special {
		if offer.ID == offerID {
			s.selectedOffers[offerID] = selected
			s.recomputeLocked()
			obs.SelectionToggles.WithLabelValues("offer", "ok").Inc()
			return
		}
	}
}

// Recompute re-derives the published pricing from the current selections. It
// is idempotent: with unchanged inputs it publishes an identical triple.
func (s *Session) Recompute() Derived {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeLocked()
	return s.derived
}

func (s *Session) recomputeLocked() {
	var additions, deltaImpact Money
	for _, group := range s.addons {
		for _, addon := range group {
			if !addon.Selected {
				continue
			}
			additions += addon.Price
			deltaImpact += addon.MonthlyImpact
		}
	}
	for _, up := range s.catalog.Upsells {
		if !s.selectedUpsells[up.ID] {
			continue
		}
		additions += up.BasePrice
		deltaImpact += s.terms.ItemImpact(up.BasePrice)
	}

	savings := offers.Savings(s.selectedSpecialLocked(), s.base.Total, s.now())

	subtotal := s.base.Subtotal + additions
	total := pricing.TotalWithAdjustments(s.base.Total, additions, savings, s.base.Discount)

	// The additive fallback anchors on the proposal's original monthly
	// payment, not the previously published one, so recomputation stays a
	// pure function of the selection sets.
	monthly, err := s.terms.MonthlyPayment(total, deltaImpact)
	if err != nil {
		// Invalid financing terms: keep the last good monthly payment so the
		// display never regresses to a nonsensical value.
		s.logger.Error().Err(err).Msg("monthly payment recomputation failed")
		monthly = s.derived.MonthlyPayment
	}

	s.derived = Derived{Subtotal: subtotal, Total: total, MonthlyPayment: monthly}
	obs.Recomputations.Inc()
}

func (s *Session) selectedSpecialLocked() []offers.SpecialOffer {
	var out []offers.SpecialOffer
	for _, offer := range s.catalog.Special {
		if s.selectedOffers[offer.ID] {
			out = append(out, offer)
		}
	}
	return out
}

func (s *Session) onTick(expired []string) {
	if len(expired) == 0 {
		return
	}
	obs.OffersExpired.Add(float64(len(expired)))
	s.mu.Lock()
	s.recomputeLocked()
	s.mu.Unlock()
}

// FormatTimer renders the live countdown for an offer. The second return is
// false once the timer has expired or when the offer was never timed.
func (s *Session) FormatTimer(offerID string) (string, bool) {
	t, ok := s.ticker.Timer(offerID)
	if !ok {
		return "", false
	}
	return countdown.Format(t), true
}

// Timers returns display strings for every live offer countdown.
func (s *Session) Timers() map[string]string {
	snapshot := s.ticker.Snapshot()
	out := make(map[string]string, len(snapshot))
	for id, t := range snapshot {
		out[id] = countdown.Format(t)
	}
	return out
}

// Close stops the countdown tick. The session must not be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.ticker.Stop()
}
