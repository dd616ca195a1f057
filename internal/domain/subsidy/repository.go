package subsidy

import "context"

type AllocationRepository interface {
	Create(ctx context.Context, a *Allocation) error
	GetByAllocationID(ctx context.Context, allocationID string) (*Allocation, error)
	// GetLiveBySFD returns the non-revoked pool of an SFD.
	GetLiveBySFD(ctx context.Context, sfdID string) (*Allocation, error)
	// GetLiveBySFDForUpdate is GetLiveBySFD holding a row lock until commit.
	GetLiveBySFDForUpdate(ctx context.Context, sfdID string) (*Allocation, error)
	// UpdateBalance writes amount, used_amount and status only if the stored
	// version still equals expectedVersion, then bumps a.Version.
	UpdateBalance(ctx context.Context, a *Allocation, expectedVersion uint64) error
}

type RequestRepository interface {
	Create(ctx context.Context, r *Request) error
	GetByRequestID(ctx context.Context, requestID string) (*Request, error)
	GetByRequestIDForUpdate(ctx context.Context, requestID string) (*Request, error)
	// Queue lists requests in review order: priority rank, then oldest first.
	Queue(ctx context.Context, status RequestStatus, sfdID string, limit int) ([]Request, error)
	Save(ctx context.Context, r *Request) error
}
