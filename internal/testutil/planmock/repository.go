package planmock

import (
	"context"

	domain "meref-loan-engine/internal/domain/plan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies plan.Repository.
type Repo struct {
	CreateFn      func(ctx context.Context, p *domain.LoanPlan) error
	GetByPlanIDFn func(ctx context.Context, planID string) (*domain.LoanPlan, error)
	ListBySFDFn   func(ctx context.Context, sfdID string, activeOnly bool) ([]domain.LoanPlan, error)
	SaveFn        func(ctx context.Context, p *domain.LoanPlan) error
}

func (m *Repo) Create(ctx context.Context, p *domain.LoanPlan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return nil
}

func (m *Repo) GetByPlanID(ctx context.Context, planID string) (*domain.LoanPlan, error) {
	if m.GetByPlanIDFn != nil {
		return m.GetByPlanIDFn(ctx, planID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) ListBySFD(ctx context.Context, sfdID string, activeOnly bool) ([]domain.LoanPlan, error) {
	if m.ListBySFDFn != nil {
		return m.ListBySFDFn(ctx, sfdID, activeOnly)
	}
	return nil, nil
}

func (m *Repo) Save(ctx context.Context, p *domain.LoanPlan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, p)
	}
	return nil
}
