package repo

import (
	"context"
	"fmt"

	"github.com/Sallahudin001/proposal-engine/internal/session"
)

// ProposalAddons loads the per-service addon catalog for a proposal, with any
// previously persisted selections already flagged.
func (s *Store) ProposalAddons(ctx context.Context, proposalID string, services []string) (map[string][]session.Addon, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrStoreUnavailable
	}
	if len(services) == 0 {
		return nil, nil
	}

	rows, err := s.Pool.Query(ctx, `SELECT a.id, a.service_key, a.name, a.price_cents,
       sel.addon_id IS NOT NULL AS selected
FROM proposal_addons a
LEFT JOIN proposal_addon_selections sel
  ON sel.proposal_id = $1 AND sel.addon_id = a.id
WHERE a.service_key = ANY($2)
ORDER BY a.service_key, a.name`, proposalID, services)
	if err != nil {
		return nil, fmt.Errorf("load addons for %s: %w", proposalID, err)
	}
	defer rows.Close()

	groups := make(map[string][]session.Addon)
	for rows.Next() {
		var (
			addon      session.Addon
			serviceKey string
		)
		if err := rows.Scan(&addon.ID, &serviceKey, &addon.Name, &addon.Price, &addon.Selected); err != nil {
			return nil, fmt.Errorf("scan addon row: %w", err)
		}
		groups[serviceKey] = append(groups[serviceKey], addon)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

// SaveSelection upserts a persisted addon selection.
func (s *Store) SaveSelection(ctx context.Context, rec session.SelectionRecord) error {
	if s == nil || s.Pool == nil {
		return ErrStoreUnavailable
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO proposal_addon_selections (proposal_id, addon_id, service_key, price_cents, monthly_impact_cents)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (proposal_id, addon_id)
DO UPDATE SET price_cents = EXCLUDED.price_cents,
              monthly_impact_cents = EXCLUDED.monthly_impact_cents,
              updated_at = now()`,
		rec.ProposalID, rec.AddonID, rec.ServiceKey, rec.Price, rec.MonthlyImpact)
	return err
}

// RemoveSelection deletes a persisted addon selection. Removing an absent
// selection is not an error.
func (s *Store) RemoveSelection(ctx context.Context, proposalID, addonID string) error {
	if s == nil || s.Pool == nil {
		return ErrStoreUnavailable
	}
	_, err := s.Pool.Exec(ctx, `DELETE FROM proposal_addon_selections WHERE proposal_id = $1 AND addon_id = $2`,
		proposalID, addonID)
	return err
}
