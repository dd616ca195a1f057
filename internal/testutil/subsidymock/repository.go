package subsidymock

import (
	"context"

	domain "meref-loan-engine/internal/domain/subsidy"
)

var (
	_ domain.AllocationRepository = (*AllocationRepo)(nil)
	_ domain.RequestRepository    = (*RequestRepo)(nil)
)

// AllocationRepo is a function-backed mock that satisfies subsidy.AllocationRepository.
type AllocationRepo struct {
	CreateFn                func(ctx context.Context, a *domain.Allocation) error
	GetByAllocationIDFn     func(ctx context.Context, allocationID string) (*domain.Allocation, error)
	GetLiveBySFDFn          func(ctx context.Context, sfdID string) (*domain.Allocation, error)
	GetLiveBySFDForUpdateFn func(ctx context.Context, sfdID string) (*domain.Allocation, error)
	UpdateBalanceFn         func(ctx context.Context, a *domain.Allocation, expectedVersion uint64) error
}

func (m *AllocationRepo) Create(ctx context.Context, a *domain.Allocation) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *AllocationRepo) GetByAllocationID(ctx context.Context, allocationID string) (*domain.Allocation, error) {
	if m.GetByAllocationIDFn != nil {
		return m.GetByAllocationIDFn(ctx, allocationID)
	}
	return nil, domain.ErrAllocationNotFound
}

func (m *AllocationRepo) GetLiveBySFD(ctx context.Context, sfdID string) (*domain.Allocation, error) {
	if m.GetLiveBySFDFn != nil {
		return m.GetLiveBySFDFn(ctx, sfdID)
	}
	return nil, domain.ErrAllocationNotFound
}

func (m *AllocationRepo) GetLiveBySFDForUpdate(ctx context.Context, sfdID string) (*domain.Allocation, error) {
	if m.GetLiveBySFDForUpdateFn != nil {
		return m.GetLiveBySFDForUpdateFn(ctx, sfdID)
	}
	return m.GetLiveBySFD(ctx, sfdID)
}

// UpdateBalance bumps the version on success like the real repository does.
func (m *AllocationRepo) UpdateBalance(ctx context.Context, a *domain.Allocation, expectedVersion uint64) error {
	if m.UpdateBalanceFn != nil {
		return m.UpdateBalanceFn(ctx, a, expectedVersion)
	}
	a.Version = expectedVersion + 1
	return nil
}

// RequestRepo is a function-backed mock that satisfies subsidy.RequestRepository.
type RequestRepo struct {
	CreateFn                  func(ctx context.Context, r *domain.Request) error
	GetByRequestIDFn          func(ctx context.Context, requestID string) (*domain.Request, error)
	GetByRequestIDForUpdateFn func(ctx context.Context, requestID string) (*domain.Request, error)
	QueueFn                   func(ctx context.Context, status domain.RequestStatus, sfdID string, limit int) ([]domain.Request, error)
	SaveFn                    func(ctx context.Context, r *domain.Request) error
}

func (m *RequestRepo) Create(ctx context.Context, r *domain.Request) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	return nil
}

func (m *RequestRepo) GetByRequestID(ctx context.Context, requestID string) (*domain.Request, error) {
	if m.GetByRequestIDFn != nil {
		return m.GetByRequestIDFn(ctx, requestID)
	}
	return nil, domain.ErrRequestNotFound
}

func (m *RequestRepo) GetByRequestIDForUpdate(ctx context.Context, requestID string) (*domain.Request, error) {
	if m.GetByRequestIDForUpdateFn != nil {
		return m.GetByRequestIDForUpdateFn(ctx, requestID)
	}
	return m.GetByRequestID(ctx, requestID)
}

func (m *RequestRepo) Queue(ctx context.Context, status domain.RequestStatus, sfdID string, limit int) ([]domain.Request, error) {
	if m.QueueFn != nil {
		return m.QueueFn(ctx, status, sfdID, limit)
	}
	return nil, nil
}

func (m *RequestRepo) Save(ctx context.Context, r *domain.Request) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, r)
	}
	return nil
}
