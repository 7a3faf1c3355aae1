package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Sallahudin001/proposal-engine/internal/offers"
	"github.com/Sallahudin001/proposal-engine/internal/session"
)

type fakePersister struct {
	failNext bool
	saved    []session.SelectionRecord
	removed  []string
}

func (p *fakePersister) SaveSelection(_ context.Context, rec session.SelectionRecord) error {
	if p.failNext {
		p.failNext = false
		return errors.New("persistence down")
	}
	p.saved = append(p.saved, rec)
	return nil
}

func (p *fakePersister) RemoveSelection(_ context.Context, _, addonID string) error {
	if p.failNext {
		p.failNext = false
		return errors.New("persistence down")
	}
	p.removed = append(p.removed, addonID)
	return nil
}

func factor(pct float64) *float64 { return &pct }

func newTestSession(t *testing.T, cfg session.Config) *session.Session {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Hour
	}
	s := session.New(cfg)
	t.Cleanup(s.Close)
	return s
}

func baseTenK() session.BasePricing {
	return session.BasePricing{
		Subtotal:       10_000_00,
		Total:          10_000_00,
		MonthlyPayment: 142_00,
		PaymentFactor:  factor(1.42),
	}
}

func TestAddonToggleRecomputesViaFactor(t *testing.T) {
	persister := &fakePersister{}
	s := newTestSession(t, session.Config{
		ProposalID: "p1",
		Base:       baseTenK(),
		Addons: map[string][]session.Addon{
			"roofing": {{ID: "a1", Name: "Gutter guards", Price: 1_500_00}},
		},
		Persister: persister,
	})

	require.Equal(t, session.Derived{Subtotal: 10_000_00, Total: 10_000_00, MonthlyPayment: 142_00}, s.CurrentPricing())

	require.NoError(t, s.ToggleAddon(context.Background(), "roofing", "a1", true))
	got := s.CurrentPricing()
	require.Equal(t, session.Money(11_500_00), got.Subtotal)
	require.Equal(t, session.Money(11_500_00), got.Total)
	// 11,500 * 1.42% = 163.30
	require.Equal(t, session.Money(163_30), got.MonthlyPayment)

	require.Len(t, persister.saved, 1)
	rec := persister.saved[0]
	require.Equal(t, "p1", rec.ProposalID)
	require.Equal(t, session.Money(1_500_00), rec.Price)
	// Monthly impact is derived from price and factor, never taken from catalog data.
	require.Equal(t, session.Money(21_30), rec.MonthlyImpact)
}

func TestSpecialOfferFlatAndPercent(t *testing.T) {
	s := newTestSession(t, session.Config{
		ProposalID: "p1",
		Base:       baseTenK(),
		Catalog: offers.Catalog{Special: []offers.SpecialOffer{
			{ID: "flat", DiscountAmount: 500_00},
			{ID: "pct", DiscountPctBps: 1000},
		}},
	})

	s.ToggleSpecialOffer("flat", true)
	require.Equal(t, session.Money(9_500_00), s.CurrentPricing().Total)

	s.ToggleSpecialOffer("flat", false)
	s.ToggleSpecialOffer("pct", true)
	// 10% of the base total.
	require.Equal(t, session.Money(9_000_00), s.CurrentPricing().Total)
}

func TestExpiredSelectedOfferContributesNothing(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	s := newTestSession(t, session.Config{
		ProposalID: "p1",
		Base:       baseTenK(),
		Catalog: offers.Catalog{Special: []offers.SpecialOffer{
			{ID: "dead", DiscountAmount: 500_00, ExpiresAt: &past},
		}},
	})
	s.ToggleSpecialOffer("dead", true)
	require.Equal(t, session.Money(10_000_00), s.CurrentPricing().Total)
	_, ok := s.FormatTimer("dead")
	require.False(t, ok, "expired offer must have no live timer")
}

func TestRecomputeIdempotent(t *testing.T) {
	s := newTestSession(t, session.Config{ProposalID: "p1", Base: baseTenK()})
	first := s.Recompute()
	second := s.Recompute()
	require.Equal(t, first, second)
}

func TestTotalsNeverNegative(t *testing.T) {
	s := newTestSession(t, session.Config{
		ProposalID: "p1",
		Base: session.BasePricing{
			Subtotal:       1_000_00,
			Total:          1_000_00,
			MonthlyPayment: 20_00,
			PaymentFactor:  factor(2.0),
			Discount:       300_00,
		},
		Catalog: offers.Catalog{Special: []offers.SpecialOffer{
			{ID: "huge", DiscountAmount: 50_000_00},
		}},
	})
	s.ToggleSpecialOffer("huge", true)
	got := s.CurrentPricing()
	require.GreaterOrEqual(t, got.Total, session.Money(0))
	require.GreaterOrEqual(t, got.MonthlyPayment, session.Money(0))
	require.Equal(t, session.Money(0), got.Total)
}

func TestRollbackRestoresExactPreToggleState(t *testing.T) {
	persister := &fakePersister{failNext: true}
	s := newTestSession(t, session.Config{
		ProposalID: "p1",
		Base:       baseTenK(),
		Addons: map[string][]session.Addon{
			"hvac": {{ID: "a1", Price: 2_000_00}},
		},
		Persister: persister,
	})
	before := s.CurrentPricing()

	err := s.ToggleAddon(context.Background(), "hvac", "a1", true)
	require.ErrorIs(t, err, session.ErrPersistFailed)

	require.Equal(t, before, s.CurrentPricing())
	require.False(t, s.AddonGroups()["hvac"][0].Selected)

	// The next toggle starts from the rolled-back state and succeeds.
	require.NoError(t, s.ToggleAddon(context.Background(), "hvac", "a1", true))
	require.True(t, s.AddonGroups()["hvac"][0].Selected)
}

func TestToggleUnknownAddonIsNoOp(t *testing.T) {
	s := newTestSession(t, session.Config{
		ProposalID: "p1",
		Base:       baseTenK(),
		Addons:     map[string][]session.Addon{"roofing": {{ID: "a1", Price: 100_00}}},
	})
	before := s.CurrentPricing()
	require.NoError(t, s.ToggleAddon(context.Background(), "roofing", "missing", true))
	require.NoError(t, s.ToggleAddon(context.Background(), "windows", "a1", true))
	require.Equal(t, before, s.CurrentPricing())
}

func TestUpsellUsesDerivedMonthlyImpact(t *testing.T) {
	s := newTestSession(t, session.Config{
		ProposalID: "p1",
		Base:       baseTenK(),
		Catalog: offers.Catalog{Upsells: []offers.LifestyleUpsell{
			// Catalog impact predates the proposal's terms and is ignored by the math.
			{ID: "u1", BasePrice: 1_000_00, MonthlyImpact: 999_99},
		}},
	})
	s.ToggleUpsell("u1", true)
	got := s.CurrentPricing()
	require.Equal(t, session.Money(11_000_00), got.Total)
	// 11,000 * 1.42% = 156.20 via the factor path.
	require.Equal(t, session.Money(156_20), got.MonthlyPayment)
}

func TestAdditiveFallbackWhenNoTermsKnown(t *testing.T) {
	s := newTestSession(t, session.Config{
		ProposalID: "p1",
		Base: session.BasePricing{
			Subtotal: 8_000_00,
			Total:    8_000_00,
			// No monthly payment, factor, term or rate on record: pricing can
			// only anchor on the (zero) last payment plus item deltas, and
			// item impacts themselves derive to zero without terms.
			MonthlyPayment: 0,
		},
		Addons: map[string][]session.Addon{"paint": {{ID: "a1", Price: 500_00}}},
	})
	require.NoError(t, s.ToggleAddon(context.Background(), "paint", "a1", true))
	got := s.CurrentPricing()
	require.Equal(t, session.Money(8_500_00), got.Total)
	require.Equal(t, session.Money(0), got.MonthlyPayment)
}

func TestAmortizationPathWithoutFactor(t *testing.T) {
	rate := 0.0
	s := newTestSession(t, session.Config{
		ProposalID: "p1",
		Base: session.BasePricing{
			Subtotal:      12_000_00,
			Total:         12_000_00,
			FinancingTerm: 60,
			InterestRate:  &rate,
		},
	})
	// 12,000 / 60 = 200.00
	require.Equal(t, session.Money(200_00), s.CurrentPricing().MonthlyPayment)
}

func TestFactorReconstructedFromMonthlyAndTotal(t *testing.T) {
	s := newTestSession(t, session.Config{
		ProposalID: "p1",
		Base: session.BasePricing{
			Subtotal:       10_000_00,
			Total:          10_000_00,
			MonthlyPayment: 142_00,
			// No explicit factor: reconstructed as monthly/total*100 = 1.42%.
		},
		Addons: map[string][]session.Addon{"roofing": {{ID: "a1", Price: 1_500_00}}},
	})
	require.NoError(t, s.ToggleAddon(context.Background(), "roofing", "a1", true))
	require.Equal(t, session.Money(163_30), s.CurrentPricing().MonthlyPayment)
}
