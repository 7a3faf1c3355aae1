package offers

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// expirationLayouts lists the timestamp formats the offer feed is known to emit.
var expirationLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize splits a flat offer feed into typed collections. Records with an
// unknown discriminator are dropped, numeric fields that fail to parse default
// to zero, and a bundle rule missing its bonus message has one synthesized from
// the proposal's service list. Normalize never fails; a partially broken
// promotional catalog must not prevent a proposal from pricing.
func Normalize(raws []RawOffer, upsellRaws []RawUpsell, services []string) Catalog {
	var cat Catalog
	for _, raw := range raws {
		switch strings.TrimSpace(raw.OfferType) {
		case TypeSpecialOffer:
			cat.Special = append(cat.Special, normalizeSpecial(raw))
		case TypeBundleRule:
			cat.Bundles = append(cat.Bundles, normalizeBundle(raw, services))
		}
	}
	for _, raw := range upsellRaws {
		if !raw.IsActive {
			continue
		}
		cat.Upsells = append(cat.Upsells, LifestyleUpsell{
			ID:            raw.ID,
			Name:          raw.ProductSuggestion,
			Category:      raw.Category,
			Description:   raw.Description,
			BasePrice:     ParseCents(raw.BasePrice),
			MonthlyImpact: ParseCents(raw.MonthlyImpact),
		})
	}
	return cat
}

func normalizeSpecial(raw RawOffer) SpecialOffer {
	offer := SpecialOffer{
		ID:          raw.OfferID,
		Name:        raw.Name,
		Description: raw.Description,
		Category:    raw.Category,
		ExpiresAt:   parseExpiration(raw.ExpirationDate),
	}
	if amount := ParseCents(raw.DiscountAmount); amount > 0 {
		offer.DiscountAmount = amount
		return offer
	}
	if bps := ParsePercentBps(raw.DiscountPercentage); bps > 0 {
		offer.DiscountPctBps = bps
		return offer
	}
	offer.FreeItem = strings.TrimSpace(raw.FreeItem)
	return offer
}

func normalizeBundle(raw RawOffer, services []string) BundleRule {
	rule := BundleRule{
		ID:            raw.OfferID,
		Name:          raw.Name,
		DiscountValue: ParseCents(raw.DiscountAmount),
		FreeService:   strings.TrimSpace(raw.FreeItem),
		BonusMessage:  strings.TrimSpace(raw.BonusMessage),
	}
	if rule.BonusMessage == "" {
		rule.BonusMessage = bonusMessage(rule.DiscountValue, services)
	}
	return rule
}

func bonusMessage(amount Money, services []string) string {
	return fmt.Sprintf("Bundle Bonus Applied: %s off for combining %s",
		FormatUSD(amount), strings.Join(services, " + "))
}

// ParseCents converts a dollar-denominated numeric field to minor units.
// Missing or unparseable values yield 0.
func ParseCents(value Numeric) Money {
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" {
		return 0
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0
	}
	cents := d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if cents < 0 {
		return 0
	}
	return cents
}

// ParsePercentBps converts a percentage field (e.g. "10" or "2.5") to basis
// points. Missing or unparseable values yield 0.
func ParsePercentBps(value Numeric) int32 {
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" {
		return 0
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0
	}
	bps := d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if bps < 0 {
		return 0
	}
	return int32(bps)
}

func parseExpiration(value string) *time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	for _, layout := range expirationLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return &ts
		}
	}
	return nil
}

// FormatUSD renders a minor-unit amount as "$1,234.56", dropping the cents
// suffix for whole-dollar amounts.
func FormatUSD(amount Money) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	dollars := amount / 100
	cents := amount % 100

	s := fmt.Sprintf("%d", dollars)
	var b strings.Builder
	if neg {
		b.WriteString("-$")
	} else {
		b.WriteString("$")
	}
	rem := len(s) % 3
	if rem == 0 {
		rem = 3
	}
	b.WriteString(s[:rem])
	for i := rem; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	if cents > 0 {
		b.WriteString(fmt.Sprintf(".%02d", cents))
	}
	return b.String()
}
