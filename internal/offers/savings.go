package offers

import "time"

// Savings sums the monetary value of the selected special offers against a
// proposal's base total. A flat amount wins over a percentage; a free-item
// offer contributes nothing to the total, it is display-only. Offers whose
// deadline has passed at the given instant are skipped even if still selected.
func Savings(selected []SpecialOffer, baseTotal Money, now time.Time) Money {
	var total Money
	for _, offer := range selected {
		if offer.Expired(now) {
			continue
		}
		switch {
		case offer.DiscountAmount > 0:
			total += offer.DiscountAmount
		case offer.DiscountPctBps > 0:
			total += baseTotal * Money(offer.DiscountPctBps) / 10000
		}
	}
	if total < 0 {
		return 0
	}
	return total
}

// BundleSavings sums the display-only "already saved" value of the catalog's
// bundle rules. Bundle discounts are evaluated server-side when the proposal
// is created and are already baked into its starting total, so this value is
// never subtracted again during live recomputation. If the proposal's services
// change after bundle evaluation the displayed bonus can drift from the amount
// actually embedded in the total; that is a known consistency risk upstream.
func BundleSavings(bundles []BundleRule) Money {
	var total Money
	for _, rule := range bundles {
		if rule.DiscountValue > 0 {
			total += rule.DiscountValue
		}
	}
	return total
}
