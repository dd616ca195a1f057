package loan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meref-loan-engine/internal/domain/activity"
	"meref-loan-engine/internal/domain/errs"
	"meref-loan-engine/internal/domain/event"
	"meref-loan-engine/internal/domain/loan"
	"meref-loan-engine/internal/domain/plan"
	"meref-loan-engine/internal/domain/uow"
	"meref-loan-engine/internal/usecase"
	"meref-loan-engine/pkg/amortization"
	"meref-loan-engine/pkg/id"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

type Usecase struct {
	loans loan.Repository
	uow   uow.UnitOfWork
	deps  usecase.Deps
}

// NewUsecase: loans serves reads outside a transaction; every state change
// goes through tx with the loan row locked.
func NewUsecase(loans loan.Repository, tx uow.UnitOfWork, deps usecase.Deps) *Usecase {
	return &Usecase{loans: loans, uow: tx, deps: deps.WithDefaults()}
}

func validateCreate(in CreateLoanInput, d usecase.Deps) error {
	v := &errs.ValidationError{}
	if strings.TrimSpace(in.ClientID) == "" {
		v.Add("client_id", "is required")
	}
	if strings.TrimSpace(in.SFDID) == "" {
		v.Add("sfd_id", "is required")
	}
	if !in.Amount.IsPositive() {
		v.Add("amount", "must be > 0")
	} else if !d.Precise(in.Amount) {
		v.Add("amount", d.PrecisionMessage())
	}
	if in.DurationMonths < 1 {
		v.Add("duration_months", "must be >= 1")
	}
	if in.InterestRate != nil && in.InterestRate.IsNegative() {
		v.Add("interest_rate", "must be >= 0")
	}
	if in.SubsidyAmount != nil && (in.SubsidyAmount.IsNegative() || in.SubsidyAmount.GreaterThan(in.Amount)) {
		v.Add("subsidy_amount", "must be within 0 and amount")
	} else if in.SubsidyAmount != nil && !d.Precise(*in.SubsidyAmount) {
		v.Add("subsidy_amount", d.PrecisionMessage())
	}
	if in.SubsidyRate != nil && (in.SubsidyRate.IsNegative() || in.SubsidyRate.GreaterThan(hundred)) {
		v.Add("subsidy_rate", "must be within 0 and 100")
	}
	return v.OrNil()
}

type terms struct {
	rate    decimal.Decimal
	feeRate decimal.Decimal
	plan    *plan.LoanPlan
}

// resolveTerms checks the request against its plan, if any, and settles the rate.
func resolveTerms(ctx context.Context, r uow.Repos, in CreateLoanInput) (terms, error) {
	if in.PlanID == nil {
		if in.InterestRate == nil {
			return terms{}, errs.Invalid("interest_rate", "is required without plan_id")
		}
		return terms{rate: *in.InterestRate}, nil
	}

	p, err := r.Plans.GetByPlanID(ctx, *in.PlanID)
	if errors.Is(err, plan.ErrNotFound) {
		return terms{}, errs.Invalid("plan_id", "unknown plan")
	}
	if err != nil {
		return terms{}, err
	}
	if p.SFDID != in.SFDID {
		return terms{}, errs.Invalid("plan_id", "belongs to another SFD")
	}
	if !p.IsActive {
		return terms{}, errs.ErrPlanInactive
	}

	v := &errs.ValidationError{}
	if !p.AmountInRange(in.Amount) {
		v.Add("amount", fmt.Sprintf("must be within %s and %s", p.MinAmount, p.MaxAmount))
	}
	if !p.DurationInRange(in.DurationMonths) {
		v.Add("duration_months", fmt.Sprintf("must be within %d and %d", p.MinDuration, p.MaxDuration))
	}
	rate := p.InterestRate
	if in.InterestRate != nil {
		if !in.InterestRate.Equal(p.InterestRate) {
			v.Add("interest_rate", "must equal the plan rate "+p.InterestRate.String())
		}
	}
	if err := v.OrNil(); err != nil {
		return terms{}, err
	}
	return terms{rate: rate, feeRate: p.FeeRate, plan: p}, nil
}

func (u *Usecase) Create(ctx context.Context, in CreateLoanInput) (*LoanDTO, error) {
	if err := validateCreate(in, u.deps); err != nil {
		return nil, err
	}
	minor := u.deps.Policy.MinorUnits

	var out *loan.Loan
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		t, err := resolveTerms(ctx, r, in)
		if err != nil {
			return err
		}
		calc, err := amortization.Calculate(in.Amount, in.DurationMonths, t.rate, minor)
		if err != nil {
			return errs.Invalid("amount", err.Error())
		}
		if !calc.MonthlyPayment.IsPositive() {
			return errs.Invalid("amount", fmt.Sprintf("too small for a positive monthly payment over %d months", in.DurationMonths))
		}

		subsidyAmount, subsidyRate := decimal.Zero, decimal.Zero
		if in.SubsidyRate != nil {
			subsidyRate = *in.SubsidyRate
			subsidyAmount = calc.TotalInterest.Mul(subsidyRate).Div(hundred).Round(minor)
		}
		if in.SubsidyAmount != nil {
			subsidyAmount = *in.SubsidyAmount
		}

		now := u.deps.Now()
		l := &loan.Loan{
			LoanID:          id.NewID32(),
			ClientID:        in.ClientID,
			SFDID:           in.SFDID,
			Amount:          in.Amount,
			DurationMonths:  in.DurationMonths,
			InterestRate:    t.rate,
			MonthlyPayment:  calc.MonthlyPayment,
			TotalRepayment:  calc.TotalRepayment,
			FeeAmount:       in.Amount.Mul(t.feeRate).Div(hundred).Round(minor),
			AmountPaid:      decimal.Zero,
			SubsidyAmount:   subsidyAmount,
			SubsidyRate:     subsidyRate,
			Status:          loan.StatusPending,
			StatusUpdatedAt: now,
			Purpose:         strings.TrimSpace(in.Purpose),
		}
		if t.plan != nil {
			planID, version := t.plan.PlanID, t.plan.Version
			l.PlanID, l.PlanVersion = &planID, &version
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		out = l
		return r.Activities.Append(ctx, activity.NewEntry(
			activity.SubjectLoan, l.LoanID, activity.LoanCreated, in.ActorID, now,
			fmt.Sprintf("loan of %s over %d months requested", l.Amount, l.DurationMonths),
			map[string]any{
				"sfd_id":          l.SFDID,
				"monthly_payment": l.MonthlyPayment.String(),
				"total_repayment": l.TotalRepayment.String(),
				"subsidy_amount":  l.SubsidyAmount.String(),
			},
		))
	})
	if err != nil {
		return nil, err
	}
	u.deps.Metrics.LoanTransition(string(loan.StatusPending))
	u.deps.Log.Info("loan created", zap.String("loan_id", out.LoanID), zap.String("sfd_id", out.SFDID))
	return toDTO(out), nil
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return toDTO(l), nil
}

func (u *Usecase) List(ctx context.Context, f loan.Filter) ([]*LoanDTO, error) {
	ls, err := u.loans.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]*LoanDTO, 0, len(ls))
	for i := range ls {
		out = append(out, toDTO(&ls[i]))
	}
	return out, nil
}

// Schedule derives the installment plan from the loan's persisted terms.
func (u *Usecase) Schedule(ctx context.Context, loanID string) ([]amortization.Installment, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return amortization.Schedule(l.Amount, l.DurationMonths, l.InterestRate, u.deps.Policy.MinorUnits)
}

// StatusChanged is the notification for a committed loan transition.
func StatusChanged(l *loan.Loan, actorID string) event.Event {
	return event.Event{
		Kind:       event.LoanStatusChanged,
		SubjectID:  l.LoanID,
		SFDID:      l.SFDID,
		Status:     string(l.Status),
		Amount:     l.Amount.String(),
		ActorID:    actorID,
		OccurredAt: l.StatusUpdatedAt,
	}
}

func invalidTransition(from, to loan.Status) error {
	return fmt.Errorf("%w: loan is %s, cannot become %s", errs.ErrInvalidTransition, from, to)
}
