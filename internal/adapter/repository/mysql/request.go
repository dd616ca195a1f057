package mysql

import (
	"context"

	subsidyDomain "meref-loan-engine/internal/domain/subsidy"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RequestRepository struct{ db *gorm.DB }

func NewRequestRepository(db *gorm.DB) *RequestRepository { return &RequestRepository{db: db} }

func (r *RequestRepository) Create(ctx context.Context, req *subsidyDomain.Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *RequestRepository) Save(ctx context.Context, req *subsidyDomain.Request) error {
	return r.db.WithContext(ctx).Save(req).Error
}

func (r *RequestRepository) GetByRequestID(ctx context.Context, requestID string) (*subsidyDomain.Request, error) {
	var out subsidyDomain.Request
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&out).Error; err != nil {
		return nil, notFound(err, subsidyDomain.ErrRequestNotFound)
	}
	return &out, nil
}

func (r *RequestRepository) GetByRequestIDForUpdate(ctx context.Context, requestID string) (*subsidyDomain.Request, error) {
	var out subsidyDomain.Request
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", requestID).
		First(&out).Error
	if err != nil {
		return nil, notFound(err, subsidyDomain.ErrRequestNotFound)
	}
	return &out, nil
}

func (r *RequestRepository) Queue(ctx context.Context, status subsidyDomain.RequestStatus, sfdID string, limit int) ([]subsidyDomain.Request, error) {
	q := r.db.WithContext(ctx).Model(&subsidyDomain.Request{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if sfdID != "" {
		q = q.Where("sfd_id = ?", sfdID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []subsidyDomain.Request
	return out, q.Order("priority_rank ASC, created_at ASC, id ASC").Find(&out).Error
}
