package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Sallahudin001/proposal-engine/internal/offers"
)

// ProposalOffers loads the flat offer feed for a proposal. Numeric columns are
// carried as text verbatim; the offers adapter owns parsing so a malformed
// value degrades to zero instead of killing the load.
func (s *Store) ProposalOffers(ctx context.Context, proposalID string) ([]offers.RawOffer, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrStoreUnavailable
	}

	rows, err := s.Pool.Query(ctx, `SELECT offer_id, offer_type, name, description, category,
       discount_amount::text, discount_percentage::text, free_item, expiration_date, bonus_message
FROM proposal_offers WHERE proposal_id = $1 AND active`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("load offers for %s: %w", proposalID, err)
	}
	defer rows.Close()

	var raws []offers.RawOffer
	for rows.Next() {
		var (
			raw        offers.RawOffer
			desc       sql.NullString
			category   sql.NullString
			amount     sql.NullString
			percentage sql.NullString
			freeItem   sql.NullString
			expiration sql.NullString
			bonus      sql.NullString
		)
		if err := rows.Scan(&raw.OfferID, &raw.OfferType, &raw.Name, &desc, &category,
			&amount, &percentage, &freeItem, &expiration, &bonus); err != nil {
			return nil, fmt.Errorf("scan offer row: %w", err)
		}
		raw.Description = desc.String
		raw.Category = category.String
		raw.DiscountAmount = offers.Numeric(amount.String)
		raw.DiscountPercentage = offers.Numeric(percentage.String)
		raw.FreeItem = freeItem.String
		raw.ExpirationDate = expiration.String
		raw.BonusMessage = bonus.String
		raws = append(raws, raw)
	}
	return raws, rows.Err()
}

// LifestyleUpsells loads the active general upsell catalog.
func (s *Store) LifestyleUpsells(ctx context.Context) ([]offers.RawUpsell, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrStoreUnavailable
	}

	rows, err := s.Pool.Query(ctx, `SELECT id, product_suggestion, category,
       base_price::text, monthly_impact::text, description, is_active
FROM lifestyle_upsells WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("load lifestyle upsells: %w", err)
	}
	defer rows.Close()

	var raws []offers.RawUpsell
	for rows.Next() {
		var (
			raw    offers.RawUpsell
			desc   sql.NullString
			price  sql.NullString
			impact sql.NullString
		)
		if err := rows.Scan(&raw.ID, &raw.ProductSuggestion, &raw.Category,
			&price, &impact, &desc, &raw.IsActive); err != nil {
			return nil, fmt.Errorf("scan upsell row: %w", err)
		}
		raw.BasePrice = offers.Numeric(price.String)
		raw.MonthlyImpact = offers.Numeric(impact.String)
		raw.Description = desc.String
		raws = append(raws, raw)
	}
	return raws, rows.Err()
}

// DeactivateOffer flips an offer inactive once its deadline passes. New
// catalog loads stop seeing it; open sessions already exclude it through the
// countdown.
func (s *Store) DeactivateOffer(ctx context.Context, offerID string) error {
	if s == nil || s.Pool == nil {
		return ErrStoreUnavailable
	}
	_, err := s.Pool.Exec(ctx, `UPDATE proposal_offers SET active = false WHERE offer_id = $1`, offerID)
	return err
}
