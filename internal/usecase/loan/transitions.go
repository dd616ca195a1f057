package loan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"meref-loan-engine/internal/domain/activity"
	"meref-loan-engine/internal/domain/errs"
	"meref-loan-engine/internal/domain/loan"
	"meref-loan-engine/internal/domain/uow"

	"go.uber.org/zap"
)

// step is one edge of the loan state machine plus its side fields.
type step struct {
	to       loan.Status
	activity activity.Type
	// guard adds preconditions beyond the edge itself.
	guard func(l *loan.Loan, now time.Time) error
	apply func(l *loan.Loan, now time.Time)
	note  string
}

// transition re-reads the loan under its row lock, checks the edge and commits
// the change together with its activity entry. The notification goes out only
// after commit.
func (u *Usecase) transition(ctx context.Context, loanID, actorID string, s step) (*LoanDTO, error) {
	var out *loan.Loan
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
		now := u.deps.Now()
		if !loan.CanTransition(l.Status, s.to) {
			return invalidTransition(l.Status, s.to)
		}
		if s.guard != nil {
			if err := s.guard(l, now); err != nil {
				return err
			}
		}
		from := l.Status
		l.MoveTo(s.to, now)
		if s.apply != nil {
			s.apply(l, now)
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		out = l
		details := map[string]any{"from": string(from), "to": string(s.to)}
		if s.note != "" {
			details["note"] = s.note
		}
		return r.Activities.Append(ctx, activity.NewEntry(
			activity.SubjectLoan, l.LoanID, s.activity, actorID, now,
			fmt.Sprintf("loan %s -> %s", from, s.to), details,
		))
	})
	if err != nil {
		return nil, err
	}
	u.deps.Metrics.LoanTransition(string(s.to))
	u.deps.Events.Publish(ctx, StatusChanged(out, actorID))
	return toDTO(out), nil
}

func (u *Usecase) Approve(ctx context.Context, loanID, approverID string) (*LoanDTO, error) {
	return u.transition(ctx, loanID, approverID, step{
		to:       loan.StatusApproved,
		activity: activity.LoanApproved,
		apply: func(l *loan.Loan, now time.Time) {
			l.ApprovedAt, l.ApprovedBy = &now, &approverID
		},
	})
}

func (u *Usecase) Reject(ctx context.Context, loanID, actorID, reason string) (*LoanDTO, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errs.Invalid("reason", "is required")
	}
	return u.transition(ctx, loanID, actorID, step{
		to:       loan.StatusRejected,
		activity: activity.LoanRejected,
		note:     reason,
		apply: func(l *loan.Loan, now time.Time) {
			l.RejectedAt, l.RejectedBy = &now, &actorID
			l.RejectionReason = reason
		},
	})
}

// RecordDefault defaults an active loan whose next installment is more than
// the grace period overdue.
func (u *Usecase) RecordDefault(ctx context.Context, loanID, actorID string) (*LoanDTO, error) {
	grace := u.deps.Grace()
	return u.transition(ctx, loanID, actorID, step{
		to:       loan.StatusDefaulted,
		activity: activity.LoanDefaulted,
		guard: func(l *loan.Loan, now time.Time) error {
			if !l.OverdueSince(now, grace) {
				return fmt.Errorf("%w: loan is within its %d-day grace period", errs.ErrInvalidTransition, u.deps.Policy.GraceDays)
			}
			return nil
		},
		apply: func(l *loan.Loan, now time.Time) { l.DefaultedAt = &now },
	})
}

// SweepDefaults defaults every active loan past its grace period, one
// transaction per loan. Loans that changed state meanwhile are skipped.
func (u *Usecase) SweepDefaults(ctx context.Context, actorID string) ([]string, error) {
	cutoff := u.deps.Now().Add(-u.deps.Grace())
	overdue, err := u.loans.ListOverdue(ctx, cutoff, u.deps.Policy.SweepBatchSize)
	if err != nil {
		return nil, err
	}
	var (
		done    []string
		errList []error
	)
	for _, l := range overdue {
		_, err := u.RecordDefault(ctx, l.LoanID, actorID)
		switch {
		case err == nil:
			done = append(done, l.LoanID)
		case errors.Is(err, errs.ErrInvalidTransition):
			u.deps.Log.Debug("sweep: loan no longer defaultable", zap.String("loan_id", l.LoanID), zap.Error(err))
		default:
			u.deps.Log.Error("sweep: default failed", zap.String("loan_id", l.LoanID), zap.Error(err))
			errList = append(errList, fmt.Errorf("loan %s: %w", l.LoanID, err))
		}
	}
	return done, errors.Join(errList...)
}

func (u *Usecase) Complete(ctx context.Context, loanID, actorID string) (*LoanDTO, error) {
	return u.transition(ctx, loanID, actorID, step{
		to:       loan.StatusCompleted,
		activity: activity.LoanCompleted,
		guard: func(l *loan.Loan, _ time.Time) error {
			if l.AmountPaid.LessThan(l.TotalRepayment) {
				return fmt.Errorf("%w: outstanding balance %s", errs.ErrInvalidTransition, l.Outstanding())
			}
			return nil
		},
		apply: func(l *loan.Loan, now time.Time) { l.CompletedAt = &now },
	})
}

// CompleteWithin closes a fully repaid loan inside the caller's transaction,
// saving it and writing its activity entry.
func CompleteWithin(ctx context.Context, r uow.Repos, l *loan.Loan, actorID string, now time.Time) error {
	if !l.MoveTo(loan.StatusCompleted, now) {
		return invalidTransition(l.Status, loan.StatusCompleted)
	}
	l.CompletedAt = &now
	if err := r.Loans.Save(ctx, l); err != nil {
		return err
	}
	return r.Activities.Append(ctx, activity.NewEntry(
		activity.SubjectLoan, l.LoanID, activity.LoanCompleted, actorID, now,
		"loan repaid in full",
		map[string]any{"amount_paid": l.AmountPaid.String(), "total_repayment": l.TotalRepayment.String()},
	))
}
