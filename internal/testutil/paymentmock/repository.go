package paymentmock

import (
	"context"

	domain "meref-loan-engine/internal/domain/payment"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies payment.Repository.
type Repo struct {
	AppendFn         func(ctx context.Context, p *domain.LoanPayment) error
	GetByReferenceFn func(ctx context.Context, loanID, reference string) (*domain.LoanPayment, error)
	ListByLoanIDFn   func(ctx context.Context, loanID string) ([]domain.LoanPayment, error)
}

func (m *Repo) Append(ctx context.Context, p *domain.LoanPayment) error {
	if m.AppendFn != nil {
		return m.AppendFn(ctx, p)
	}
	return nil
}

func (m *Repo) GetByReference(ctx context.Context, loanID, reference string) (*domain.LoanPayment, error) {
	if m.GetByReferenceFn != nil {
		return m.GetByReferenceFn(ctx, loanID, reference)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) ListByLoanID(ctx context.Context, loanID string) ([]domain.LoanPayment, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanID)
	}
	return nil, nil
}
