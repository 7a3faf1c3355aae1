package offers

import (
	"context"

	"github.com/rs/zerolog"
)

// OfferSource fetches the flat offer feed for a proposal.
type OfferSource interface {
	ProposalOffers(ctx context.Context, proposalID string) ([]RawOffer, error)
}

// UpsellSource fetches the general lifestyle-upsell catalog.
type UpsellSource interface {
	LifestyleUpsells(ctx context.Context) ([]RawUpsell, error)
}

// Loader combines both offer sources into a normalized catalog. A failing
// source degrades to an empty collection with a warn log; base pricing must
// keep functioning without promotions.
type Loader struct {
	Offers  OfferSource
	Upsells UpsellSource
	Cache   *Cache
	Logger  *zerolog.Logger
}

// Load returns the normalized catalog for a proposal, reading through the
// cache when one is configured.
func (l *Loader) Load(ctx context.Context, proposalID string, services []string) Catalog {
	if l == nil {
		return Catalog{}
	}
	if cached, ok, err := l.Cache.Get(ctx, proposalID); err == nil && ok {
		return cached
	} else if err != nil {
		l.warn(err, "read catalog cache")
	}

	var raws []RawOffer
	if l.Offers != nil {
		fetched, err := l.Offers.ProposalOffers(ctx, proposalID)
		if err != nil {
			l.warn(err, "fetch proposal offers")
		} else {
			raws = fetched
		}
	}

	var upsellRaws []RawUpsell
	if l.Upsells != nil {
		fetched, err := l.Upsells.LifestyleUpsells(ctx)
		if err != nil {
			l.warn(err, "fetch lifestyle upsells")
		} else {
			upsellRaws = fetched
		}
	}

	cat := Normalize(raws, upsellRaws, services)
	if err := l.Cache.Set(ctx, proposalID, cat); err != nil {
		l.warn(err, "write catalog cache")
	}
	return cat
}

func (l *Loader) warn(err error, msg string) {
	if l.Logger == nil {
		return
	}
	l.Logger.Warn().Err(err).Msg(msg)
}
