package pricing

// Terms captures the financing parameters known for a proposal. The zero value
// means nothing is known and only the additive fallback is available.
type Terms struct {
	FactorBps     int32
	TermMonths    int
	AnnualRatePct float64
	// RateKnown distinguishes an explicit 0% rate from an absent one; the
	// amortization path requires both a term and a known rate.
	RateKnown bool
	// LastMonthly is the most recently published monthly payment, used only
	// by the additive fallback.
	LastMonthly Money
}

// MonthlyPayment resolves the monthly payment for a recomputed total following
// a strict precedence chain:
//
//  1. a known payment factor applied to the new total,
//  2. a known term and interest rate via standard amortization,
//  3. the last monthly payment adjusted by the signed per-item impact delta.
//
// The third path mixes an additive delta with the multiplicative models above
// and is not mathematically equivalent to them; it is kept as an explicitly
// weaker approximation for proposals carrying no usable financing terms.
func (t Terms) MonthlyPayment(newTotal Money, deltaImpact Money) (Money, error) {
	if t.FactorBps > 0 {
		return MonthlyPaymentFromFactor(newTotal, t.FactorBps), nil
	}
	if t.TermMonths > 0 && t.RateKnown {
		return AmortizedMonthlyPayment(newTotal, t.TermMonths, t.AnnualRatePct)
	}
	monthly := t.LastMonthly + deltaImpact
	if monthly < 0 {
		monthly = 0
	}
	return monthly, nil
}

// ItemImpact derives the monthly impact of a line item under these terms.
func (t Terms) ItemImpact(price Money) Money {
	return AddonMonthlyImpact(price, t.FactorBps, t.TermMonths)
}
