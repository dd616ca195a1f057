package loan

import (
	"context"
	"time"
)

type Filter struct {
	SFDID  string
	Status Status
	Limit  int
}

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetByLoanIDForUpdate locks the row for the rest of the enclosing transaction.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	List(ctx context.Context, f Filter) ([]Loan, error)
	// ListOverdue returns active loans whose next payment date is before cutoff.
	ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]Loan, error)
	Save(ctx context.Context, l *Loan) error
}
