package mysql

import (
	"context"

	planDomain "meref-loan-engine/internal/domain/plan"

	"gorm.io/gorm"
)

type PlanRepository struct{ db *gorm.DB }

func NewPlanRepository(db *gorm.DB) *PlanRepository { return &PlanRepository{db: db} }

func (r *PlanRepository) Create(ctx context.Context, p *planDomain.LoanPlan) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PlanRepository) Save(ctx context.Context, p *planDomain.LoanPlan) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PlanRepository) GetByPlanID(ctx context.Context, planID string) (*planDomain.LoanPlan, error) {
	var out planDomain.LoanPlan
	if err := r.db.WithContext(ctx).Where("plan_id = ?", planID).First(&out).Error; err != nil {
		return nil, notFound(err, planDomain.ErrNotFound)
	}
	return &out, nil
}

func (r *PlanRepository) ListBySFD(ctx context.Context, sfdID string, activeOnly bool) ([]planDomain.LoanPlan, error) {
	q := r.db.WithContext(ctx).Where("sfd_id = ?", sfdID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []planDomain.LoanPlan
	return out, q.Order("name ASC, id ASC").Find(&out).Error
}
