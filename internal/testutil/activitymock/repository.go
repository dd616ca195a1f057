package activitymock

import (
	"context"
	"sync"

	domain "meref-loan-engine/internal/domain/activity"
)

var _ domain.Repository = (*Recorder)(nil)

// Recorder keeps appended entries in memory so tests can assert on the audit
// trail a use case produced.
type Recorder struct {
	AppendErr error
	ListFn    func(ctx context.Context, q domain.Query) ([]domain.Entry, error)

	mu      sync.Mutex
	entries []domain.Entry
}

func (m *Recorder) Append(_ context.Context, e *domain.Entry) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *Recorder) List(ctx context.Context, q domain.Query) ([]domain.Entry, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, q)
	}
	return m.Entries(), nil
}

func (m *Recorder) Entries() []domain.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Types returns the activity types in append order.
func (m *Recorder) Types() []domain.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Type, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.ActivityType)
	}
	return out
}
