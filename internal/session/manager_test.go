package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Sallahudin001/proposal-engine/internal/offers"
	"github.com/Sallahudin001/proposal-engine/internal/session"
)

type fakeProposals struct {
	pricing map[string]session.BasePricing
	calls   int
}

func (f *fakeProposals) ProposalPricing(_ context.Context, id string) (session.BasePricing, []string, error) {
	f.calls++
	base, ok := f.pricing[id]
	if !ok {
		return session.BasePricing{}, nil, session.ErrProposalNotFound
	}
	return base, []string{"roofing"}, nil
}

type fakeAddons struct {
	err    error
	groups map[string][]session.Addon
}

func (f *fakeAddons) ProposalAddons(_ context.Context, _ string, _ []string) (map[string][]session.Addon, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.groups, nil
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []string
}

func (f *fakeScheduler) ScheduleDeactivation(_ context.Context, offerID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, offerID)
	return nil
}

type staticOffers struct{ raws []offers.RawOffer }

func (s staticOffers) ProposalOffers(_ context.Context, _ string) ([]offers.RawOffer, error) {
	return s.raws, nil
}

func newTestManager(proposals *fakeProposals) *session.Manager {
	return &session.Manager{
		Proposals:    proposals,
		Logger:       zerolog.Nop(),
		TickInterval: time.Hour,
	}
}

func TestManagerOpenReturnsSameSession(t *testing.T) {
	proposals := &fakeProposals{pricing: map[string]session.BasePricing{
		"p1": {Subtotal: 10_000_00, Total: 10_000_00, MonthlyPayment: 142_00},
	}}
	mgr := newTestManager(proposals)
	t.Cleanup(mgr.Shutdown)

	first, err := mgr.Open(context.Background(), "p1")
	require.NoError(t, err)
	second, err := mgr.Open(context.Background(), "p1")
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, proposals.calls)

	got, ok := mgr.Get("p1")
	require.True(t, ok)
	require.Same(t, first, got)
}

func TestManagerOpenUnknownProposal(t *testing.T) {
	mgr := newTestManager(&fakeProposals{})
	t.Cleanup(mgr.Shutdown)

	_, err := mgr.Open(context.Background(), "missing")
	require.ErrorIs(t, err, session.ErrProposalNotFound)
	_, ok := mgr.Get("missing")
	require.False(t, ok)
}

func TestManagerOpenDegradesOnAddonFailure(t *testing.T) {
	proposals := &fakeProposals{pricing: map[string]session.BasePricing{
		"p1": {Subtotal: 5_000_00, Total: 5_000_00},
	}}
	mgr := newTestManager(proposals)
	mgr.Addons = &fakeAddons{err: context.DeadlineExceeded}
	t.Cleanup(mgr.Shutdown)

	s, err := mgr.Open(context.Background(), "p1")
	require.NoError(t, err)
	require.Empty(t, s.AddonGroups())
	require.Equal(t, session.Money(5_000_00), s.CurrentPricing().Total)
}

func TestManagerSchedulesExpiryForLiveOffersOnly(t *testing.T) {
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	proposals := &fakeProposals{pricing: map[string]session.BasePricing{
		"p1": {Subtotal: 5_000_00, Total: 5_000_00},
	}}
	scheduler := &fakeScheduler{}
	mgr := newTestManager(proposals)
	mgr.Expiry = scheduler
	mgr.Catalog = &offers.Loader{Offers: staticOffers{raws: []offers.RawOffer{
		{OfferID: "live", OfferType: offers.TypeSpecialOffer, Name: "Live", DiscountAmount: "100", ExpirationDate: future},
		{OfferID: "dead", OfferType: offers.TypeSpecialOffer, Name: "Dead", DiscountAmount: "100", ExpirationDate: past},
		{OfferID: "open", OfferType: offers.TypeSpecialOffer, Name: "Open", DiscountAmount: "100"},
	}}}
	t.Cleanup(mgr.Shutdown)

	_, err := mgr.Open(context.Background(), "p1")
	require.NoError(t, err)

	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	require.Equal(t, []string{"live"}, scheduler.scheduled)
}

func TestManagerCloseStopsTracking(t *testing.T) {
	proposals := &fakeProposals{pricing: map[string]session.BasePricing{
		"p1": {Subtotal: 5_000_00, Total: 5_000_00},
	}}
	mgr := newTestManager(proposals)
	t.Cleanup(mgr.Shutdown)

	_, err := mgr.Open(context.Background(), "p1")
	require.NoError(t, err)
	mgr.Close("p1")
	_, ok := mgr.Get("p1")
	require.False(t, ok)
}

func TestManagerEvictsIdleSessions(t *testing.T) {
	proposals := &fakeProposals{pricing: map[string]session.BasePricing{
		"p1": {Subtotal: 10_000_00, Total: 10_000_00},
		"p2": {Subtotal: 8_000_00, Total: 8_000_00},
	}}
	now := time.Now()
	mgr := newTestManager(proposals)
	mgr.IdleTTL = 10 * time.Minute
	mgr.Now = func() time.Time { return now }
	t.Cleanup(mgr.Shutdown)

	_, err := mgr.Open(context.Background(), "p1")
	require.NoError(t, err)
	_, err = mgr.Open(context.Background(), "p2")
	require.NoError(t, err)

	// Keep p2 warm, let p1 go stale.
	now = now.Add(9 * time.Minute)
	_, ok := mgr.Get("p2")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	require.Equal(t, 1, mgr.EvictIdle())

	_, ok = mgr.Get("p1")
	require.False(t, ok)
	_, ok = mgr.Get("p2")
	require.True(t, ok)
}

func TestManagerEvictIdleDisabledWithoutTTL(t *testing.T) {
	proposals := &fakeProposals{pricing: map[string]session.BasePricing{
		"p1": {Subtotal: 10_000_00, Total: 10_000_00},
	}}
	now := time.Now()
	mgr := newTestManager(proposals)
	mgr.Now = func() time.Time { return now }
	t.Cleanup(mgr.Shutdown)

	_, err := mgr.Open(context.Background(), "p1")
	require.NoError(t, err)

	now = now.Add(24 * time.Hour)
	require.Zero(t, mgr.EvictIdle())
	_, ok := mgr.Get("p1")
	require.True(t, ok)
}
