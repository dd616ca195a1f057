package mysql

import (
	"context"

	activityDomain "meref-loan-engine/internal/domain/activity"

	"gorm.io/gorm"
)

type ActivityRepository struct{ db *gorm.DB }

func NewActivityRepository(db *gorm.DB) *ActivityRepository { return &ActivityRepository{db: db} }

func (r *ActivityRepository) Append(ctx context.Context, e *activityDomain.Entry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *ActivityRepository) List(ctx context.Context, q activityDomain.Query) ([]activityDomain.Entry, error) {
	db := r.db.WithContext(ctx).Model(&activityDomain.Entry{})
	if q.SubjectID != "" {
		db = db.Where("subject_id = ?", q.SubjectID)
	}
	if !q.From.IsZero() {
		db = db.Where("performed_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		db = db.Where("performed_at < ?", q.To)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	var out []activityDomain.Entry
	return out, db.Order("performed_at ASC, id ASC").Find(&out).Error
}
