package activity

import (
	"context"
	"time"

	"meref-loan-engine/internal/domain/activity"
	"meref-loan-engine/internal/domain/errs"
)

// maxPage caps a single audit query.
const maxPage = 1000

type Usecase struct {
	entries activity.Repository
}

func NewUsecase(entries activity.Repository) *Usecase {
	return &Usecase{entries: entries}
}

// List returns the entries of one subject performed in [from, to), oldest
// first. A zero bound leaves that side of the window open.
func (u *Usecase) List(ctx context.Context, subjectID string, from, to time.Time, limit int) ([]activity.Entry, error) {
	if subjectID == "" {
		return nil, errs.Invalid("subject_id", "is required")
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, errs.Invalid("from", "must be before to")
	}
	if limit <= 0 || limit > maxPage {
		limit = maxPage
	}
	return u.entries.List(ctx, activity.Query{SubjectID: subjectID, From: from, To: to, Limit: limit})
}
