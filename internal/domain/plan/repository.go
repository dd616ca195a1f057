package plan

import "context"

type Repository interface {
	Create(ctx context.Context, p *LoanPlan) error
	GetByPlanID(ctx context.Context, planID string) (*LoanPlan, error)
	ListBySFD(ctx context.Context, sfdID string, activeOnly bool) ([]LoanPlan, error)
	Save(ctx context.Context, p *LoanPlan) error
}
