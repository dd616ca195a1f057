package amortization

import (
	"errors"

	"github.com/shopspring/decimal"
)

// divisionPrecision is fixed so identical inputs always produce identical results.
const divisionPrecision = 20

var ErrInvalidInput = errors.New("invalid amortization input")

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

type Result struct {
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
	TotalRepayment decimal.Decimal `json:"total_repayment"`
}

type Installment struct {
	Number    int             `json:"number"`
	Payment   decimal.Decimal `json:"payment"`
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
	Balance   decimal.Decimal `json:"balance"`
}

// MonthlyRate converts an annual percentage rate into a monthly fraction.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.DivRound(hundred, divisionPrecision).DivRound(twelve, divisionPrecision)
}

// Calculate returns the level monthly payment for an annuity loan together with
// the totals derived from it. Amounts are rounded half-up to minorUnits places
// and the totals are computed from the rounded payment so that
// TotalRepayment == MonthlyPayment*n and TotalInterest == TotalRepayment-principal.
func Calculate(principal decimal.Decimal, durationMonths int, annualRatePercent decimal.Decimal, minorUnits int32) (Result, error) {
	if !principal.IsPositive() || durationMonths < 1 || annualRatePercent.IsNegative() {
		return Result{}, ErrInvalidInput
	}
	n := decimal.NewFromInt(int64(durationMonths))
	r := MonthlyRate(annualRatePercent)

	var payment decimal.Decimal
	if r.IsZero() {
		payment = principal.DivRound(n, divisionPrecision)
	} else {
		growth := decimal.NewFromInt(1).Add(r).Pow(n)
		num := principal.Mul(r).Mul(growth)
		den := growth.Sub(decimal.NewFromInt(1))
		payment = num.DivRound(den, divisionPrecision)
	}
	payment = payment.Round(minorUnits)

	total := payment.Mul(n)
	return Result{
		MonthlyPayment: payment,
		TotalInterest:  total.Sub(principal),
		TotalRepayment: total,
	}, nil
}

// Schedule splits the repayment into installments. Interest for each period is
// computed on the outstanding balance; the final installment clears whatever
// balance remains, absorbing rounding residue. The installments therefore need
// not sum to Calculate's TotalRepayment: at zero rate 100 over 3 months yields
// 33, 33, 34 while TotalRepayment is 99. Loans complete on TotalRepayment.
func Schedule(principal decimal.Decimal, durationMonths int, annualRatePercent decimal.Decimal, minorUnits int32) ([]Installment, error) {
	res, err := Calculate(principal, durationMonths, annualRatePercent, minorUnits)
	if err != nil {
		return nil, err
	}
	r := MonthlyRate(annualRatePercent)
	balance := principal
	out := make([]Installment, 0, durationMonths)
	for i := 1; i <= durationMonths; i++ {
		interest := balance.Mul(r).Round(minorUnits)
		principalPart := res.MonthlyPayment.Sub(interest)
		payment := res.MonthlyPayment
		if i == durationMonths || principalPart.GreaterThan(balance) {
			principalPart = balance
			payment = principalPart.Add(interest)
		}
		balance = balance.Sub(principalPart)
		out = append(out, Installment{
			Number:    i,
			Payment:   payment,
			Interest:  interest,
			Principal: principalPart,
			Balance:   balance,
		})
		if balance.IsZero() {
			break
		}
	}
	return out, nil
}
