package payment

import "context"

type Repository interface {
	Append(ctx context.Context, p *LoanPayment) error
	GetByReference(ctx context.Context, loanID, reference string) (*LoanPayment, error)
	ListByLoanID(ctx context.Context, loanID string) ([]LoanPayment, error)
}
