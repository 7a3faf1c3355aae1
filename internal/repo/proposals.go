package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sallahudin001/proposal-engine/internal/session"
)

// ErrStoreUnavailable indicates the store has no configured pool.
var ErrStoreUnavailable = errors.New("repo: store unavailable")

// Store provides database accessors for proposal pricing data.
type Store struct {
	Pool *pgxpool.Pool
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// ProposalPricing loads the persisted base pricing record and selected service
// list for a proposal. A missing row maps to session.ErrProposalNotFound.
func (s *Store) ProposalPricing(ctx context.Context, proposalID string) (session.BasePricing, []string, error) {
	if s == nil || s.Pool == nil {
		return session.BasePricing{}, nil, ErrStoreUnavailable
	}

	row := s.Pool.QueryRow(ctx, `SELECT subtotal_cents, total_cents, monthly_payment_cents, discount_cents,
       financing_term, interest_rate, payment_factor, financing_plan_name, services, custom_adders
FROM proposals WHERE id = $1`, proposalID)

	var (
		base     session.BasePricing
		term     sql.NullInt32
		rate     sql.NullFloat64
		factor   sql.NullFloat64
		planName sql.NullString
		services []string
		adders   []byte
	)
	err := row.Scan(&base.Subtotal, &base.Total, &base.MonthlyPayment, &base.Discount,
		&term, &rate, &factor, &planName, &services, &adders)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.BasePricing{}, nil, session.ErrProposalNotFound
	}
	if err != nil {
		return session.BasePricing{}, nil, fmt.Errorf("load proposal %s: %w", proposalID, err)
	}

	if term.Valid {
		base.FinancingTerm = int(term.Int32)
	}
	if rate.Valid {
		v := rate.Float64
		base.InterestRate = &v
	}
	if factor.Valid {
		v := factor.Float64
		base.PaymentFactor = &v
	}
	if planName.Valid {
		base.FinancingPlanName = planName.String
	}
	if len(adders) > 0 {
		if err := json.Unmarshal(adders, &base.CustomAdders); err != nil {
			return session.BasePricing{}, nil, fmt.Errorf("decode custom adders for %s: %w", proposalID, err)
		}
	}
	return base, services, nil
}
