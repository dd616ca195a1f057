package loan

import (
	"meref-loan-engine/internal/domain/loan"

	"github.com/shopspring/decimal"
)

type CreateLoanInput struct {
	ClientID       string
	SFDID          string
	PlanID         *string
	Amount         decimal.Decimal
	DurationMonths int
	// InterestRate defaults to the plan rate; required when no plan is given.
	InterestRate *decimal.Decimal
	// SubsidyAmount wins over SubsidyRate when both are set. SubsidyRate is a
	// percentage of the total interest.
	SubsidyAmount *decimal.Decimal
	SubsidyRate   *decimal.Decimal
	Purpose       string
	ActorID       string
}

type LoanDTO struct {
	*loan.Loan
	Outstanding decimal.Decimal `json:"outstanding"`
}

func toDTO(l *loan.Loan) *LoanDTO { return &LoanDTO{Loan: l, Outstanding: l.Outstanding()} }
