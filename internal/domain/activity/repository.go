package activity

import (
	"context"
	"time"
)

type Query struct {
	SubjectID string
	From      time.Time
	To        time.Time
	Limit     int
}

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, q Query) ([]Entry, error)
}
