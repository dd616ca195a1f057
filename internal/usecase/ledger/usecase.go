package ledger

import (
	"context"
	"time"

	"meref-loan-engine/internal/domain/errs"
	"meref-loan-engine/internal/domain/subsidy"
	"meref-loan-engine/internal/domain/uow"
	"meref-loan-engine/internal/usecase"

	"go.uber.org/zap"
)

type Usecase struct {
	allocations subsidy.AllocationRepository
	uow         uow.UnitOfWork
	deps        usecase.Deps
}

// NewUsecase: allocations serves reads outside a transaction, tx runs the
// standalone credit/reserve flows.
func NewUsecase(allocations subsidy.AllocationRepository, tx uow.UnitOfWork, deps usecase.Deps) *Usecase {
	return &Usecase{allocations: allocations, uow: tx, deps: deps.WithDefaults()}
}

func (u *Usecase) Credit(ctx context.Context, m Mutation) (*AllocationDTO, error) {
	return u.mutate(ctx, "credit", m, Credit)
}

func (u *Usecase) Reserve(ctx context.Context, m Mutation) (*AllocationDTO, error) {
	return u.mutate(ctx, "reserve", m, Reserve)
}

type mutator func(context.Context, uow.Repos, Mutation, time.Time) (*subsidy.Allocation, error)

func (u *Usecase) mutate(ctx context.Context, op string, m Mutation, apply mutator) (*AllocationDTO, error) {
	if !u.deps.Precise(m.Amount) {
		return nil, errs.Invalid("amount", u.deps.PrecisionMessage())
	}
	var out *subsidy.Allocation
	err := Retry(ctx, u.deps.Policy.MaxRetries, func(attempt int) {
		u.deps.Metrics.TxRetry("ledger_" + op)
		u.deps.Log.Debug("ledger: version conflict, retrying",
			zap.String("op", op), zap.String("sfd_id", m.SFDID), zap.Int("attempt", attempt))
	}, func() error {
		return u.uow.WithinTx(ctx, func(r uow.Repos) error {
			a, err := apply(ctx, r, m, u.deps.Now())
			out = a
			return err
		})
	})
	if err != nil {
		u.deps.Metrics.LedgerMutation(op, "failed")
		return nil, err
	}
	u.deps.Metrics.LedgerMutation(op, "ok")
	u.deps.Metrics.AllocationBalance(out.SFDID, out.Amount, out.UsedAmount)
	return ToDTO(out), nil
}

// Get returns the live pool of an SFD with its derived usage percentage.
func (u *Usecase) Get(ctx context.Context, sfdID string) (*AllocationDTO, error) {
	a, err := u.allocations.GetLiveBySFD(ctx, sfdID)
	if err != nil {
		return nil, err
	}
	return ToDTO(a), nil
}
