package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meref-loan-engine/internal/domain/activity"
	"meref-loan-engine/internal/domain/errs"
	"meref-loan-engine/internal/domain/event"
	"meref-loan-engine/internal/domain/loan"
	"meref-loan-engine/internal/domain/payment"
	"meref-loan-engine/internal/domain/uow"
	"meref-loan-engine/internal/usecase"
	loanuc "meref-loan-engine/internal/usecase/loan"
	"meref-loan-engine/pkg/id"

	"go.uber.org/zap"
)

type Usecase struct {
	payments payment.Repository
	loans    loan.Repository
	uow      uow.UnitOfWork
	deps     usecase.Deps
}

func NewUsecase(payments payment.Repository, loans loan.Repository, tx uow.UnitOfWork, deps usecase.Deps) *Usecase {
	return &Usecase{payments: payments, loans: loans, uow: tx, deps: deps.WithDefaults()}
}

// RecordPayment applies a repayment to an active loan under the loan row lock.
// The loan completes in the same transaction once amount_paid reaches the
// total repayment.
func (u *Usecase) RecordPayment(ctx context.Context, in RecordInput) (*RecordResult, error) {
	if !in.Amount.IsPositive() {
		return nil, errs.ErrInvalidAmount
	}
	if !u.deps.Precise(in.Amount) {
		return nil, errs.Invalid("amount", u.deps.PrecisionMessage())
	}
	if in.Method == "" {
		in.Method = payment.MethodCash
	}
	if !in.Method.Valid() {
		return nil, errs.Invalid("payment_method", "must be one of cash, mobile_money, bank_transfer, cheque")
	}
	in.Reference = strings.TrimSpace(in.Reference)

	var res RecordResult
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Loan) error {
		res = RecordResult{}
		if in.Reference != "" {
			prev, err := r.Payments.GetByReference(ctx, l.LoanID, in.Reference)
			switch {
			case err == nil:
				res.Payment, res.Loan, res.Duplicate = prev, &loanuc.LoanDTO{Loan: l, Outstanding: l.Outstanding()}, true
				return nil
			case !errors.Is(err, payment.ErrNotFound):
				return err
			}
		}
		if l.Status != loan.StatusActive {
			return fmt.Errorf("%w: loan is %s", errs.ErrLoanNotActive, l.Status)
		}

		now := u.deps.Now()
		p := &payment.LoanPayment{
			PaymentID:     id.NewID32(),
			LoanID:        l.LoanID,
			Amount:        in.Amount,
			PaymentMethod: in.Method,
			PaymentDate:   now,
			Status:        payment.StatusCompleted,
			RecordedBy:    in.ActorID,
		}
		if in.Reference != "" {
			ref := in.Reference
			p.Reference = &ref
		}
		if err := r.Payments.Append(ctx, p); err != nil {
			return err
		}

		next := u.deps.NextDue(now)
		l.AmountPaid = l.AmountPaid.Add(in.Amount)
		l.LastPaymentDate, l.NextPaymentDate = &now, &next
		if err := r.Activities.Append(ctx, activity.NewEntry(
			activity.SubjectLoan, l.LoanID, activity.PaymentRecorded, in.ActorID, now,
			fmt.Sprintf("payment of %s received", in.Amount),
			map[string]any{"payment_id": p.PaymentID, "method": string(in.Method), "amount_paid": l.AmountPaid.String()},
		)); err != nil {
			return err
		}

		res.Payment = p
		res.Loan = &loanuc.LoanDTO{Loan: l}
		if l.AmountPaid.GreaterThanOrEqual(l.TotalRepayment) {
			if err := loanuc.CompleteWithin(ctx, r, l, in.ActorID, now); err != nil {
				return err
			}
		} else if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		res.Loan.Outstanding = l.Outstanding()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Duplicate {
		return &res, nil
	}

	l := res.Loan.Loan
	u.deps.Log.Info("payment recorded",
		zap.String("loan_id", l.LoanID),
		zap.String("payment_id", res.Payment.PaymentID),
		zap.String("amount", res.Payment.Amount.String()),
		zap.String("outstanding", res.Loan.Outstanding.String()))
	u.deps.Events.Publish(ctx, event.Event{
		Kind:       event.PaymentRecorded,
		SubjectID:  l.LoanID,
		SFDID:      l.SFDID,
		Status:     string(res.Payment.Status),
		Ref:        res.Payment.PaymentID,
		Amount:     res.Payment.Amount.String(),
		ActorID:    in.ActorID,
		OccurredAt: res.Payment.PaymentDate,
	})
	if l.Status == loan.StatusCompleted {
		u.deps.Metrics.LoanTransition(string(loan.StatusCompleted))
		u.deps.Events.Publish(ctx, loanuc.StatusChanged(l, in.ActorID))
	}
	return &res, nil
}

func (u *Usecase) List(ctx context.Context, loanID string) ([]payment.LoanPayment, error) {
	if _, err := u.loans.GetByLoanID(ctx, loanID); err != nil {
		return nil, err
	}
	return u.payments.ListByLoanID(ctx, loanID)
}
