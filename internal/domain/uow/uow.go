package uow

import (
	"context"

	"meref-loan-engine/internal/domain/activity"
	"meref-loan-engine/internal/domain/loan"
	"meref-loan-engine/internal/domain/payment"
	"meref-loan-engine/internal/domain/plan"
	"meref-loan-engine/internal/domain/subsidy"
)

// Repos is the set of repositories bound to one transaction.
type Repos struct {
	Loans       loan.Repository
	Plans       plan.Repository
	Allocations subsidy.AllocationRepository
	Requests    subsidy.RequestRepository
	Payments    payment.Repository
	Activities  activity.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
