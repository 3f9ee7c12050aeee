// Package financing holds the pure crediário math: installment pricing,
// entry requirements, credit headroom, coupons and cashback. No I/O; the
// settings snapshot is passed in by the caller.
package financing

import (
	"errors"
	"math"
	"strings"
)

var ErrInvalidInstallmentCount = errors.New("financing: installment count must be at least 1")

// InstallmentValue returns the monthly installment for a financed principal
// under compound interest: principal * (1+r)^n / n. A single installment
// carries no interest. Full precision is kept; rounding happens only at
// display time.
func InstallmentValue(principal, monthlyRatePct float64, n int) (float64, error) {
	if n < 1 {
		return 0, ErrInvalidInstallmentCount
	}
	if principal < 0 {
		principal = 0
	}
	if n == 1 {
		return principal, nil
	}
	if monthlyRatePct == 0 {
		return principal / float64(n), nil
	}
	r := monthlyRatePct / 100
	return principal * math.Pow(1+r, float64(n)) / float64(n), nil
}

// RequiredDownPayment returns the minimum entry for a sale of the given
// price. Two constraints apply and the binding one is whichever is larger:
// the regulatory minimum percentage of the price, and the entry needed so
// the financed remainder fits the customer's monthly credit headroom.
func RequiredDownPayment(price, minEntryPct, availableCredit float64, n int, monthlyRatePct float64) (float64, error) {
	if n < 1 {
		return 0, ErrInvalidInstallmentCount
	}
	if price < 0 {
		price = 0
	}
	minimum := price * minEntryPct / 100
	r := monthlyRatePct / 100
	byCredit := price - availableCredit*math.Pow(1+r, float64(n))
	entry := math.Max(minimum, byCredit)
	if entry < 0 {
		entry = 0
	}
	return entry, nil
}

// AvailableMonthlyCredit returns how much of the credit limit is left for a
// new sale. Open commitments are grouped by due month and only the single
// heaviest month counts against the limit: credit is consumed per calendar
// month, not cumulatively.
func AvailableMonthlyCredit(creditLimit float64, openByDueMonth map[string]float64) float64 {
	var peak float64
	for _, total := range openByDueMonth {
		if total > peak {
			peak = total
		}
	}
	return math.Max(0, creditLimit-peak)
}

// ApplyCoupon applies a fixed coupon table to the cart total. Unknown codes
// are no-ops. The discounted total never goes below zero.
func ApplyCoupon(total float64, code string) float64 {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "RELP10":
		total *= 0.90
	case "BOASVINDAS":
		total -= 20
	case "PROMO5":
		total *= 0.95
	}
	return math.Max(0, total)
}

// CashbackCoins converts a paid amount into loyalty coins:
// floor(amount * pct/100 * 100). One coin is one hundredth of a real.
func CashbackCoins(amountPaid, cashbackPct float64) int {
	if amountPaid <= 0 || cashbackPct <= 0 {
		return 0
	}
	return int(math.Floor(amountPaid * cashbackPct / 100 * 100))
}

// SplitInstallments divides a remaining amount into n installment values
// rounded to cents, with the last one absorbing the rounding difference so
// the sum always equals the remaining amount.
func SplitInstallments(remaining float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, ErrInvalidInstallmentCount
	}
	base := math.Round(remaining/float64(n)*100) / 100
	values := make([]float64, n)
	for i := 0; i < n-1; i++ {
		values[i] = base
	}
	last := remaining - base*float64(n-1)
	values[n-1] = math.Round(last*100) / 100
	return values, nil
}
