package disbursement

import (
	"context"
	"sync"

	"meref-loan-engine/internal/domain/errs"
	"meref-loan-engine/internal/domain/loan"
	"meref-loan-engine/internal/domain/subsidy"
	"meref-loan-engine/internal/domain/uow"
	"meref-loan-engine/internal/testutil/activitymock"
	"meref-loan-engine/internal/testutil/loanmock"
	"meref-loan-engine/internal/testutil/subsidymock"
)

// casPool is an in-memory allocation row with a real version guard and no
// locking between read and write, so concurrent callers genuinely race.
type casPool struct {
	mu  sync.Mutex
	row subsidy.Allocation
}

func (p *casPool) snapshot() subsidy.Allocation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.row
}

func (p *casPool) repo() *subsidymock.AllocationRepo {
	return &subsidymock.AllocationRepo{
		GetLiveBySFDForUpdateFn: func(context.Context, string) (*subsidy.Allocation, error) {
			cp := p.snapshot()
			return &cp, nil
		},
		UpdateBalanceFn: func(_ context.Context, a *subsidy.Allocation, expected uint64) error {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.row.Version != expected {
				return errs.ErrVersionConflict
			}
			a.Version = expected + 1
			p.row = *a
			return nil
		},
	}
}

// loanTable hands every transaction a private copy of the loan, committing it
// back on Save, so loans never share state across goroutines.
type loanTable struct {
	mu   sync.Mutex
	rows map[string]loan.Loan
}

func (t *loanTable) get(id string) loan.Loan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rows[id]
}

func (t *loanTable) repo() *loanmock.Repo {
	return &loanmock.Repo{
		GetByLoanIDForUpdateFn: func(_ context.Context, id string) (*loan.Loan, error) {
			t.mu.Lock()
			defer t.mu.Unlock()
			l, ok := t.rows[id]
			if !ok {
				return nil, loan.ErrNotFound
			}
			return &l, nil
		},
		SaveFn: func(_ context.Context, l *loan.Loan) error {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.rows[l.LoanID] = *l
			return nil
		},
	}
}

// racingUoW runs loan transactions without any mutual exclusion.
type racingUoW struct {
	repos uow.Repos
}

func (u *racingUoW) WithinTx(_ context.Context, fn func(uow.Repos) error) error { return fn(u.repos) }

func (u *racingUoW) WithinLoanTx(ctx context.Context, loanID string, fn func(uow.Repos, *loan.Loan) error) error {
	l, err := u.repos.Loans.GetByLoanIDForUpdate(ctx, loanID)
	if err != nil {
		return err
	}
	return fn(u.repos, l)
}

func newRacingEnv(pool *casPool, loans *loanTable) *racingUoW {
	return &racingUoW{repos: uow.Repos{
		Loans:       loans.repo(),
		Allocations: pool.repo(),
		Activities:  &activitymock.Recorder{},
	}}
}
