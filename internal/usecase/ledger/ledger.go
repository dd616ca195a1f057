package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meref-loan-engine/internal/domain/activity"
	"meref-loan-engine/internal/domain/errs"
	"meref-loan-engine/internal/domain/subsidy"
	"meref-loan-engine/internal/domain/uow"
	"meref-loan-engine/pkg/id"
)

// Credit adds m.Amount to the SFD's live pool inside the caller's
// transaction, opening a new pool when none exists. The write is guarded by
// the pool version; a concurrent writer surfaces as errs.ErrVersionConflict.
func Credit(ctx context.Context, r uow.Repos, m Mutation, now time.Time) (*subsidy.Allocation, error) {
	if !m.Amount.IsPositive() {
		return nil, errs.ErrInvalidAmount
	}
	a, err := r.Allocations.GetLiveBySFDForUpdate(ctx, m.SFDID)
	switch {
	case errors.Is(err, subsidy.ErrAllocationNotFound):
		sfd := m.SFDID
		a = &subsidy.Allocation{
			AllocationID: id.NewID32(),
			SFDID:        m.SFDID,
			LiveSFD:      &sfd,
			Amount:       m.Amount,
			Status:       subsidy.AllocationActive,
			Version:      1,
		}
		if err := r.Allocations.Create(ctx, a); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		expected := a.Version
		a.Credit(m.Amount)
		if err := r.Allocations.UpdateBalance(ctx, a, expected); err != nil {
			return nil, err
		}
	}

	err = r.Activities.Append(ctx, activity.NewEntry(
		activity.SubjectAllocation, a.AllocationID, activity.AllocationCredited, m.ActorID, now,
		fmt.Sprintf("credited %s to SFD %s", m.Amount, m.SFDID),
		map[string]any{
			"amount":    m.Amount.String(),
			"new_total": a.Amount.String(),
			"reference": m.Reference,
			"version":   a.Version,
		},
	))
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Reserve moves m.Amount from the SFD pool's remaining balance to its used
// balance inside the caller's transaction. A missing, revoked or short pool
// yields errs.ErrInsufficientSubsidy and writes nothing.
func Reserve(ctx context.Context, r uow.Repos, m Mutation, now time.Time) (*subsidy.Allocation, error) {
	if !m.Amount.IsPositive() {
		return nil, errs.ErrInvalidAmount
	}
	a, err := r.Allocations.GetLiveBySFDForUpdate(ctx, m.SFDID)
	if errors.Is(err, subsidy.ErrAllocationNotFound) {
		return nil, fmt.Errorf("%w: no subsidy pool for SFD %s", errs.ErrInsufficientSubsidy, m.SFDID)
	}
	if err != nil {
		return nil, err
	}

	expected := a.Version
	remaining := a.Remaining()
	if !a.Debit(m.Amount) {
		return nil, fmt.Errorf("%w: requested %s, remaining %s", errs.ErrInsufficientSubsidy, m.Amount, remaining)
	}
	if err := r.Allocations.UpdateBalance(ctx, a, expected); err != nil {
		return nil, err
	}

	err = r.Activities.Append(ctx, activity.NewEntry(
		activity.SubjectAllocation, a.AllocationID, activity.AllocationReserved, m.ActorID, now,
		fmt.Sprintf("reserved %s for %s", m.Amount, m.Reference),
		map[string]any{
			"amount":      m.Amount.String(),
			"used_amount": a.UsedAmount.String(),
			"reference":   m.Reference,
			"version":     a.Version,
		},
	))
	if err != nil {
		return nil, err
	}
	return a, nil
}
