package mysql

import (
	"context"
	"errors"

	"meref-loan-engine/internal/domain/errs"
	subsidyDomain "meref-loan-engine/internal/domain/subsidy"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AllocationRepository struct{ db *gorm.DB }

func NewAllocationRepository(db *gorm.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// Create inserts a new pool. A concurrent insert for the same SFD trips the
// live_sfd unique index and is reported as a version conflict so the caller
// retries against the row that won.
func (r *AllocationRepository) Create(ctx context.Context, a *subsidyDomain.Allocation) error {
	err := r.db.WithContext(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.ErrVersionConflict
	}
	return err
}

func (r *AllocationRepository) GetByAllocationID(ctx context.Context, allocationID string) (*subsidyDomain.Allocation, error) {
	var out subsidyDomain.Allocation
	if err := r.db.WithContext(ctx).Where("allocation_id = ?", allocationID).First(&out).Error; err != nil {
		return nil, notFound(err, subsidyDomain.ErrAllocationNotFound)
	}
	return &out, nil
}

func (r *AllocationRepository) GetLiveBySFD(ctx context.Context, sfdID string) (*subsidyDomain.Allocation, error) {
	return r.live(r.db.WithContext(ctx), sfdID)
}

func (r *AllocationRepository) GetLiveBySFDForUpdate(ctx context.Context, sfdID string) (*subsidyDomain.Allocation, error) {
	return r.live(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), sfdID)
}

func (r *AllocationRepository) live(q *gorm.DB, sfdID string) (*subsidyDomain.Allocation, error) {
	var out subsidyDomain.Allocation
	err := q.Where("sfd_id = ? AND status <> ?", sfdID, subsidyDomain.AllocationRevoked).
		Order("id DESC").
		First(&out).Error
	if err != nil {
		return nil, notFound(err, subsidyDomain.ErrAllocationNotFound)
	}
	return &out, nil
}

func (r *AllocationRepository) UpdateBalance(ctx context.Context, a *subsidyDomain.Allocation, expectedVersion uint64) error {
	res := r.db.WithContext(ctx).
		Model(&subsidyDomain.Allocation{}).
		Where("id = ? AND version = ?", a.ID, expectedVersion).
		Updates(map[string]any{
			"amount":      a.Amount,
			"used_amount": a.UsedAmount,
			"status":      a.Status,
			"version":     expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrVersionConflict
	}
	a.Version = expectedVersion + 1
	return nil
}
