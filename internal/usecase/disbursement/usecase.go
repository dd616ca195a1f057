package disbursement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meref-loan-engine/internal/domain/activity"
	"meref-loan-engine/internal/domain/errs"
	"meref-loan-engine/internal/domain/loan"
	"meref-loan-engine/internal/domain/subsidy"
	"meref-loan-engine/internal/domain/uow"
	"meref-loan-engine/internal/usecase"
	"meref-loan-engine/internal/usecase/ledger"
	loanuc "meref-loan-engine/internal/usecase/loan"

	"go.uber.org/zap"
)

type DisburseInput struct {
	LoanID      string
	DisburserID string
	// IdempotencyKey makes a repeated call return the first outcome instead
	// of failing or debiting the pool again.
	IdempotencyKey string
}

type Result struct {
	Loan         *loanuc.LoanDTO `json:"loan"`
	AllocationID string          `json:"allocation_id,omitempty"`
	Replayed     bool            `json:"replayed"`
}

type Usecase struct {
	uow  uow.UnitOfWork
	deps usecase.Deps
}

func NewUsecase(tx uow.UnitOfWork, deps usecase.Deps) *Usecase {
	return &Usecase{uow: tx, deps: deps.WithDefaults()}
}

// Disburse activates an approved loan. Reserving its subsidy, the status
// change and the audit entry commit in one transaction that holds the loan
// row lock; a version conflict on the pool restarts the whole transaction.
func (u *Usecase) Disburse(ctx context.Context, in DisburseInput) (*Result, error) {
	v := &errs.ValidationError{}
	if strings.TrimSpace(in.LoanID) == "" {
		v.Add("loan_id", "is required")
	}
	if strings.TrimSpace(in.DisburserID) == "" {
		v.Add("disburser_id", "is required")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	var (
		out  *loan.Loan
		pool *subsidy.Allocation
		res  Result
	)
	err := ledger.Retry(ctx, u.deps.Policy.MaxRetries, func(attempt int) {
		u.deps.Metrics.TxRetry("disburse")
		u.deps.Log.Info("disburse: allocation version conflict, retrying",
			zap.String("loan_id", in.LoanID), zap.Int("attempt", attempt))
	}, func() error {
		out, pool, res = nil, nil, Result{}
		return u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
			out = l
			if isReplay(l, in.IdempotencyKey) {
				res.Replayed = true
				return nil
			}
			if l.Status != loan.StatusApproved {
				return fmt.Errorf("%w: loan is %s, only approved loans can be disbursed", errs.ErrInvalidTransition, l.Status)
			}

			now := u.deps.Now()
			if l.SubsidyAmount.IsPositive() {
				a, err := ledger.Reserve(ctx, r, ledger.Mutation{
					SFDID:     l.SFDID,
					Amount:    l.SubsidyAmount,
					ActorID:   in.DisburserID,
					Reference: l.LoanID,
				}, now)
				if err != nil {
					return err
				}
				pool, res.AllocationID = a, a.AllocationID
			}

			l.MoveTo(loan.StatusActive, now)
			next := u.deps.NextDue(now)
			l.DisbursedAt, l.DisbursedBy = &now, &in.DisburserID
			l.NextPaymentDate = &next
			if in.IdempotencyKey != "" {
				l.DisbursementKey = &in.IdempotencyKey
			}
			if err := r.Loans.Save(ctx, l); err != nil {
				return err
			}
			return r.Activities.Append(ctx, activity.NewEntry(
				activity.SubjectLoan, l.LoanID, activity.LoanDisbursed, in.DisburserID, now,
				fmt.Sprintf("loan of %s disbursed", l.Amount),
				map[string]any{
					"allocation_id":     res.AllocationID,
					"subsidy_amount":    l.SubsidyAmount.String(),
					"next_payment_date": next,
				},
			))
		})
	})
	u.deps.Metrics.Disbursement(outcome(err, res.Replayed))
	if err != nil {
		u.deps.Log.Warn("disburse failed", zap.String("loan_id", in.LoanID), zap.Error(err))
		return nil, err
	}

	res.Loan = &loanuc.LoanDTO{Loan: out, Outstanding: out.Outstanding()}
	if res.Replayed {
		return &res, nil
	}
	if pool != nil {
		u.deps.Metrics.AllocationBalance(pool.SFDID, pool.Amount, pool.UsedAmount)
	}
	u.deps.Metrics.LoanTransition(string(loan.StatusActive))
	u.deps.Events.Publish(ctx, loanuc.StatusChanged(out, in.DisburserID))
	u.deps.Log.Info("loan disbursed",
		zap.String("loan_id", out.LoanID), zap.String("allocation_id", res.AllocationID),
		zap.String("subsidy_amount", out.SubsidyAmount.String()))
	return &res, nil
}

func isReplay(l *loan.Loan, key string) bool {
	return key != "" && l.DisbursedAt != nil && l.DisbursementKey != nil && *l.DisbursementKey == key
}

func outcome(err error, replayed bool) string {
	switch {
	case err == nil && replayed:
		return "replayed"
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrInsufficientSubsidy):
		return "insufficient_subsidy"
	case errors.Is(err, errs.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, errs.ErrConcurrentUpdate):
		return "concurrent_update"
	default:
		return "error"
	}
}
