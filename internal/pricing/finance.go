package pricing

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Deposit bounds in percent of the total.
const (
	MinDepositPercent = 10
	MaxDepositPercent = 50
)

// FinanceTermsMonths lists the terms a finance quote can be built for.
var FinanceTermsMonths = []int{12, 24, 36, 48, 60, 72, 84}

// internal precision for finance arithmetic; rounding to pence happens only
// in FinanceTerms.Rounded
const financePrecision = 24

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ComputeFinance builds a finance quote for total with the given deposit and
// term, amortising the remainder at the engine's APR.
func (e *Engine) ComputeFinance(total decimal.Decimal, depositPercent, termMonths int) (FinanceTerms, error) {
	if total.IsNegative() {
		return FinanceTerms{}, fmt.Errorf("%w: %s", ErrInvalidTotal, total)
	}
	if depositPercent < MinDepositPercent || depositPercent > MaxDepositPercent {
		return FinanceTerms{}, fmt.Errorf("%w: got %d", ErrInvalidDepositPercent, depositPercent)
	}
	if !slices.Contains(FinanceTermsMonths, termMonths) {
		return FinanceTerms{}, fmt.Errorf("%w: got %d", ErrInvalidTerm, termMonths)
	}

	deposit := total.Mul(decimal.NewFromInt(int64(depositPercent))).Div(hundred)
	principal := total.Sub(deposit)
	n := decimal.NewFromInt(int64(termMonths))

	monthly := MonthlyPayment(principal, e.apr, termMonths)
	payable := deposit.Add(monthly.Mul(n))

	return FinanceTerms{
		Total:          total,
		DepositPercent: depositPercent,
		TermMonths:     termMonths,
		APR:            e.apr,
		Deposit:        deposit,
		Principal:      principal,
		MonthlyPayment: monthly,
		TotalPayable:   payable,
		TotalInterest:  payable.Sub(total),
	}, nil
}

// MonthlyPayment is the annuity payment for principal over termMonths at the
// given APR (percent). A zero rate repays the principal in equal parts.
func MonthlyPayment(principal, apr decimal.Decimal, termMonths int) decimal.Decimal {
	n := decimal.NewFromInt(int64(termMonths))
	rate := apr.DivRound(decimal.NewFromInt(1200), financePrecision)
	if rate.IsZero() {
		return principal.DivRound(n, financePrecision)
	}

	growth := compound(one.Add(rate), termMonths)
	return principal.Mul(rate).Mul(growth).DivRound(growth.Sub(one), financePrecision)
}

// compound raises base to n by repeated multiplication, holding the working
// precision fixed so the digits do not grow with n.
func compound(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	for i := 0; i < n; i++ {
		result = result.Mul(base).Round(financePrecision)
	}
	return result
}
