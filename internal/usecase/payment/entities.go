package payment

import (
	"meref-loan-engine/internal/domain/payment"
	loanuc "meref-loan-engine/internal/usecase/loan"

	"github.com/shopspring/decimal"
)

type RecordInput struct {
	LoanID    string
	Amount    decimal.Decimal
	Method    payment.Method
	Reference string
	ActorID   string
}

type RecordResult struct {
	Payment *payment.LoanPayment `json:"payment"`
	Loan    *loanuc.LoanDTO      `json:"loan"`
	// Duplicate is set when the reference was already recorded for the loan.
	Duplicate bool `json:"duplicate"`
}
