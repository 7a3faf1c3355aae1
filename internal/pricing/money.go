package pricing

import (
	"errors"
	"math"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// ErrInvalidTerm is returned when a financing term is zero or negative.
var ErrInvalidTerm = errors.New("pricing: financing term must be positive")

// ErrInvalidRate is returned when a negative annual interest rate is supplied.
var ErrInvalidRate = errors.New("pricing: interest rate must not be negative")

// MonthlyPaymentFromFactor derives the monthly payment from a provider-supplied
// payment factor expressed in basis points of the financed principal.
// A 1.42% factor is 142 bps, so a 11_500_00 principal yields 163_30.
func MonthlyPaymentFromFactor(principal Money, factorBps int32) Money {
	if principal <= 0 || factorBps <= 0 {
		return 0
	}
	return principal * Money(factorBps) / 10000
}

// AmortizedMonthlyPayment computes a fixed-rate amortized monthly payment.
// A zero rate degrades to straight division of the principal over the term.
func AmortizedMonthlyPayment(principal Money, termMonths int, annualRatePct float64) (Money, error) {
	if termMonths <= 0 {
		return 0, ErrInvalidTerm
	}
	if annualRatePct < 0 {
		return 0, ErrInvalidRate
	}
	if principal <= 0 {
		return 0, nil
	}
	if annualRatePct == 0 {
		return principal / Money(termMonths), nil
	}
	monthlyRate := annualRatePct / 100 / 12
	compounded := math.Pow(1+monthlyRate, float64(termMonths))
	payment := float64(principal) * monthlyRate * compounded / (compounded - 1)
	return Money(math.Round(payment)), nil
}

// AddonMonthlyImpact derives the monthly cost of an optional line item. This is
// the single derivation site for addon and upsell monthly impact; callers must
// not compute it inline so every surface agrees on the same value.
func AddonMonthlyImpact(price Money, factorBps int32, termMonths int) Money {
	if price <= 0 {
		return 0
	}
	if factorBps > 0 {
		return MonthlyPaymentFromFactor(price, factorBps)
	}
	if termMonths > 0 {
		return price / Money(termMonths)
	}
	return 0
}

// TotalWithAdjustments combines a base total with additions and reductions.
// Additions are applied before savings and discount; the result never goes
// below zero.
func TotalWithAdjustments(baseTotal, additions, savings, discount Money) Money {
	total := baseTotal + additions - savings - discount
	if total < 0 {
		return 0
	}
	return total
}

// FactorBps converts a payment factor percentage (e.g. 1.42) to basis points.
func FactorBps(percent float64) int32 {
	if percent <= 0 {
		return 0
	}
	return int32(math.Round(percent * 100))
}

// ReconstructFactorBps recovers an implicit payment factor from a proposal's
// original monthly payment and total, per the identity factor = monthly/total*100.
// Returns 0 when either value is not positive.
func ReconstructFactorBps(monthly, total Money) int32 {
	if monthly <= 0 || total <= 0 {
		return 0
	}
	return int32((monthly*10000 + total/2) / total)
}
