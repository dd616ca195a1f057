package plan

import (
	"context"
	"fmt"
	"strings"

	"meref-loan-engine/internal/domain/activity"
	"meref-loan-engine/internal/domain/errs"
	"meref-loan-engine/internal/domain/plan"
	"meref-loan-engine/internal/domain/uow"
	"meref-loan-engine/internal/usecase"
	"meref-loan-engine/pkg/id"

	"go.uber.org/zap"
)

type Usecase struct {
	plans plan.Repository
	uow   uow.UnitOfWork
	deps  usecase.Deps
}

func NewUsecase(plans plan.Repository, tx uow.UnitOfWork, deps usecase.Deps) *Usecase {
	return &Usecase{plans: plans, uow: tx, deps: deps.WithDefaults()}
}

func validateTerms(p *plan.LoanPlan, d usecase.Deps) error {
	v := &errs.ValidationError{}
	if strings.TrimSpace(p.Name) == "" {
		v.Add("name", "is required")
	}
	if !p.MinAmount.IsPositive() {
		v.Add("min_amount", "must be > 0")
	}
	if p.MaxAmount.LessThan(p.MinAmount) {
		v.Add("max_amount", "must be >= min_amount")
	}
	if !d.Precise(p.MinAmount) {
		v.Add("min_amount", d.PrecisionMessage())
	}
	if !d.Precise(p.MaxAmount) {
		v.Add("max_amount", d.PrecisionMessage())
	}
	if p.MinDuration < 1 {
		v.Add("min_duration", "must be >= 1")
	}
	if p.MaxDuration < p.MinDuration {
		v.Add("max_duration", "must be >= min_duration")
	}
	if p.InterestRate.IsNegative() {
		v.Add("interest_rate", "must be >= 0")
	}
	if p.FeeRate.IsNegative() {
		v.Add("fee_rate", "must be >= 0")
	}
	return v.OrNil()
}

func (u *Usecase) Create(ctx context.Context, in CreatePlanInput) (*plan.LoanPlan, error) {
	if strings.TrimSpace(in.SFDID) == "" {
		return nil, errs.Invalid("sfd_id", "is required")
	}
	p := &plan.LoanPlan{
		PlanID:       id.NewID32(),
		SFDID:        in.SFDID,
		Name:         strings.TrimSpace(in.Name),
		MinAmount:    in.MinAmount,
		MaxAmount:    in.MaxAmount,
		MinDuration:  in.MinDuration,
		MaxDuration:  in.MaxDuration,
		InterestRate: in.InterestRate,
		FeeRate:      in.FeeRate,
		Requirements: append([]string{}, in.Requirements...),
		IsActive:     true,
		Version:      1,
		CreatedBy:    in.ActorID,
	}
	if err := validateTerms(p, u.deps); err != nil {
		return nil, err
	}

	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Plans.Create(ctx, p); err != nil {
			return err
		}
		return r.Activities.Append(ctx, activity.NewEntry(
			activity.SubjectPlan, p.PlanID, activity.PlanCreated, in.ActorID, u.deps.Now(),
			fmt.Sprintf("plan %q created", p.Name),
			map[string]any{"sfd_id": p.SFDID, "version": p.Version},
		))
	})
	if err != nil {
		return nil, err
	}
	u.deps.Log.Info("plan created", zap.String("plan_id", p.PlanID), zap.String("sfd_id", p.SFDID))
	return p, nil
}

// Update edits the terms of an active plan and bumps its version. Loans
// already created keep the version they were validated against.
func (u *Usecase) Update(ctx context.Context, in UpdatePlanInput) (*plan.LoanPlan, error) {
	var out *plan.LoanPlan
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		p, err := r.Plans.GetByPlanID(ctx, in.PlanID)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return errs.ErrPlanInactive
		}
		changed := applyUpdate(p, in)
		if len(changed) == 0 {
			out = p
			return nil
		}
		if err := validateTerms(p, u.deps); err != nil {
			return err
		}
		p.Version++
		if err := r.Plans.Save(ctx, p); err != nil {
			return err
		}
		out = p
		return r.Activities.Append(ctx, activity.NewEntry(
			activity.SubjectPlan, p.PlanID, activity.PlanUpdated, in.ActorID, u.deps.Now(),
			fmt.Sprintf("plan %q updated to version %d", p.Name, p.Version),
			map[string]any{"fields": changed, "version": p.Version},
		))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyUpdate(p *plan.LoanPlan, in UpdatePlanInput) []string {
	var changed []string
	if in.Name != nil && strings.TrimSpace(*in.Name) != p.Name {
		p.Name = strings.TrimSpace(*in.Name)
		changed = append(changed, "name")
	}
	if in.MinAmount != nil && !in.MinAmount.Equal(p.MinAmount) {
		p.MinAmount = *in.MinAmount
		changed = append(changed, "min_amount")
	}
	if in.MaxAmount != nil && !in.MaxAmount.Equal(p.MaxAmount) {
		p.MaxAmount = *in.MaxAmount
		changed = append(changed, "max_amount")
	}
	if in.MinDuration != nil && *in.MinDuration != p.MinDuration {
		p.MinDuration = *in.MinDuration
		changed = append(changed, "min_duration")
	}
	if in.MaxDuration != nil && *in.MaxDuration != p.MaxDuration {
		p.MaxDuration = *in.MaxDuration
		changed = append(changed, "max_duration")
	}
	if in.InterestRate != nil && !in.InterestRate.Equal(p.InterestRate) {
		p.InterestRate = *in.InterestRate
		changed = append(changed, "interest_rate")
	}
	if in.FeeRate != nil && !in.FeeRate.Equal(p.FeeRate) {
		p.FeeRate = *in.FeeRate
		changed = append(changed, "fee_rate")
	}
	if in.Requirements != nil {
		p.Requirements = append([]string{}, in.Requirements...)
		changed = append(changed, "requirements")
	}
	return changed
}

// Deactivate retires a plan. Plans are never deleted; loans keep referencing them.
func (u *Usecase) Deactivate(ctx context.Context, planID, actorID string) (*plan.LoanPlan, error) {
	var out *plan.LoanPlan
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		p, err := r.Plans.GetByPlanID(ctx, planID)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return errs.ErrInvalidTransition
		}
		p.IsActive = false
		if err := r.Plans.Save(ctx, p); err != nil {
			return err
		}
		out = p
		return r.Activities.Append(ctx, activity.NewEntry(
			activity.SubjectPlan, p.PlanID, activity.PlanDeactivated, actorID, u.deps.Now(),
			fmt.Sprintf("plan %q deactivated", p.Name), nil,
		))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Usecase) Get(ctx context.Context, planID string) (*plan.LoanPlan, error) {
	return u.plans.GetByPlanID(ctx, planID)
}

func (u *Usecase) ListBySFD(ctx context.Context, sfdID string, activeOnly bool) ([]plan.LoanPlan, error) {
	return u.plans.ListBySFD(ctx, sfdID, activeOnly)
}
